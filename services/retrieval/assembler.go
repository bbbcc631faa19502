package retrieval

import (
	"fmt"
	"strings"

	"github.com/bscm/assistant-backend/models"
)

// Prompt section literals. These mirror the deployed assistant's persona and
// section delimiters; downstream models are tuned against this exact layout.
const (
	personaPreamble = "你是一位专业的AI医疗诊断助手，专注于脑干海绵状血管畸形（Brainstem Cavernous Malformation, BSCM）的诊断咨询。\n\n"

	knowledgeHeader      = "=== 相关知识库内容 ===\n"
	knowledgeInstruction = "请基于以上相关知识库内容回答用户问题。\n\n"
	noKnowledgeNotice    = "未检索到相关知识库内容，将基于医学知识回答。\n\n"

	historyHeader  = "=== 对话历史（最近3组） ===\n"
	questionHeader = "=== 用户当前问题 ===\n"

	closingInstruction = "请用专业但易懂的语言回答问题。\n"

	// maxHistoryTurns bounds the rendered history to the last 3 exchanges
	maxHistoryTurns = 6
)

// Assembler builds the final model prompt from ranked knowledge, conversation
// history, and the current question. Assembly is pure: no I/O, no mutation of
// inputs, deterministic for the same inputs.
type Assembler struct{}

// NewAssembler creates a new prompt assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// BuildPrompt assembles the enhanced prompt. Matches must already be in
// ranking order; history is rendered chronologically, trimmed to the last
// maxHistoryTurns turns, and omitted entirely when empty.
func (a *Assembler) BuildPrompt(question string, matches []ScoredMatch, history []models.ChatMessage) string {
	var prompt strings.Builder

	prompt.WriteString(personaPreamble)

	if len(matches) > 0 {
		prompt.WriteString(knowledgeHeader)
		for i, match := range matches {
			prompt.WriteString(fmt.Sprintf("[知识%d]\n", i+1))
			prompt.WriteString(fmt.Sprintf("问题: %s\n", match.Entry.Question))
			prompt.WriteString(fmt.Sprintf("答案: %s\n\n", match.Entry.Answer))
		}
		prompt.WriteString(knowledgeInstruction)
	} else {
		prompt.WriteString(noKnowledgeNotice)
	}

	if len(history) > 0 {
		prompt.WriteString(historyHeader)
		window := history
		if len(window) > maxHistoryTurns {
			window = window[len(window)-maxHistoryTurns:]
		}
		for _, msg := range window {
			switch msg.Role {
			case models.RoleUser:
				prompt.WriteString(fmt.Sprintf("用户: %s\n", msg.Content))
			case models.RoleAssistant:
				prompt.WriteString(fmt.Sprintf("AI: %s\n", msg.Content))
			}
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString(questionHeader)
	prompt.WriteString(question)
	prompt.WriteString("\n\n")
	prompt.WriteString(closingInstruction)

	return prompt.String()
}
