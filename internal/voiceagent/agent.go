package voiceagent

import "fmt"

const (
	firstMessage = "Hello! I'm Kirb, your AI tutor. I'm here to help you understand any diagrams or concepts from your textbook. Feel free to ask me any questions or highlight a diagram for me to explain!"

	behaviorRules = `IMPORTANT BEHAVIOR RULES:
- NEVER ask "Are you still there?" or check in proactively
- ONLY speak when the user asks you a question or sends you information
- If the user says they'll let you know if they need help, simply acknowledge and then stay completely silent
- Do NOT initiate conversation or ask follow-up questions unless the user specifically asks you something
- Wait patiently for the user to speak to you`

	turnTimeoutSeconds = 30
	turnMode           = "silence"
)

// AgentSpec describes the tutor to create.
type AgentSpec struct {
	KnowledgeBase []Document
	FileNames     []string
}

// Name is "<file> Tutor" for one file, "Multi-Document Tutor" for several
// and "Document Tutor" when no file names are known.
func (s AgentSpec) Name() string {
	switch len(s.FileNames) {
	case 0:
		return "Document Tutor"
	case 1:
		return s.FileNames[0] + " Tutor"
	default:
		return "Multi-Document Tutor"
	}
}

// Prompt is the system prompt of the tutor.
func (s AgentSpec) Prompt() string {
	material := "material"
	if len(s.FileNames) > 0 {
		material = "documents"
	}
	return fmt.Sprintf("You are a helpful tutor. Use the %s in your knowledge base to answer student questions accurately and clearly. "+
		"Provide explanations, examples, and help students understand the concepts from the provided material.\n\n%s", material, behaviorRules)
}

type knowledgeBaseRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type agentPrompt struct {
	Prompt        string             `json:"prompt"`
	KnowledgeBase []knowledgeBaseRef `json:"knowledge_base,omitempty"`
}

type agentRequest struct {
	Name               string `json:"name"`
	ConversationConfig struct {
		Agent struct {
			FirstMessage string      `json:"first_message"`
			Prompt       agentPrompt `json:"prompt"`
		} `json:"agent"`
		TTS struct {
			VoiceID string `json:"voice_id"`
		} `json:"tts"`
		Turn struct {
			TurnTimeout int    `json:"turn_timeout"`
			Mode        string `json:"mode"`
		} `json:"turn"`
	} `json:"conversation_config"`
}

func (s AgentSpec) request(voiceID string) agentRequest {
	var r agentRequest
	r.Name = s.Name()
	r.ConversationConfig.Agent.FirstMessage = firstMessage
	r.ConversationConfig.Agent.Prompt.Prompt = s.Prompt()
	for _, doc := range s.KnowledgeBase {
		r.ConversationConfig.Agent.Prompt.KnowledgeBase = append(r.ConversationConfig.Agent.Prompt.KnowledgeBase,
			knowledgeBaseRef{Type: "file", Name: doc.Name, ID: doc.ID})
	}
	r.ConversationConfig.TTS.VoiceID = voiceID
	r.ConversationConfig.Turn.TurnTimeout = turnTimeoutSeconds
	r.ConversationConfig.Turn.Mode = turnMode
	return r
}
