package llm

import (
	"fmt"
	"strings"

	"github.com/paaalop/news-analyzer/internal/ports"
)

const classifySystemPrompt = "You compare two news summaries. Answer with exactly one word: YES or NO."

// digestInstruction asks for the final layout: merged topics, ranked by mention count, numbered.
const digestInstruction = "다음은 하루 동안의 기술 뉴스 주제 요약들이다. 중복되는 주제는 하나로 합치고, " +
	"가장 많이 언급된 주제 순서대로 정리하여 하루의 뉴스 트렌드를 요약해. " +
	"'하루 동안의 기술 뉴스 트렌드를 정리하면 다음과 같습니다:'와 같은 문구는 작성하지 말고 요약 내용만 작성해. " +
	"각 요약 앞에는 순서대로 숫자를 입력해.\n\n"

func summarizePrompt(req ports.SummarizeRequest) string {
	if req.Final {
		return digestPrompt(req.Texts)
	}

	sentences := req.MaxSentences
	if sentences <= 0 {
		sentences = 5
	}
	var b strings.Builder
	fmt.Fprintf(&b, "다음은 기술 뉴스 기사 요약들이다. 가장 많이 언급된 주제 순서대로 %d문장 이내로 객관적으로 요약해. "+
		"서두 문구 없이 요약 내용만 작성해.\n\n", sentences)
	b.WriteString(strings.Join(req.Texts, "\n\n"))
	return b.String()
}

func classifyPrompt(req ports.ClassifyRequest) string {
	return "Do these two news summaries describe the same story or topic? Reply YES or NO only.\n\n" +
		"Summary A:\n" + req.A + "\n\nSummary B:\n" + req.B
}

func reducePrompt(req ports.ReduceRequest) string {
	return digestPrompt(req.Blocks)
}

func digestPrompt(blocks []string) string {
	return digestInstruction + strings.Join(blocks, "\n\n")
}
