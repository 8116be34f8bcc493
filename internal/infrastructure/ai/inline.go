package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
)

// jsonBlockRe extrae el primer objeto JSON del texto aunque el modelo lo envuelva en markdown.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// inlineCall forma {"tool": "...", "input": {...}} que algunos modelos escriben
// como texto en lugar de usar la llamada nativa.
type inlineCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// parseInlineToolCall detecta una llamada escrita en el texto. El texto fuera
// del JSON queda como Action.Text.
func parseInlineToolCall(text string, tools []ports.ToolSpec) (ports.Action, bool) {
	raw := extractJSON(text)
	if raw == "" {
		return ports.Action{}, false
	}
	var call inlineCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil || call.Tool == "" {
		return ports.Action{}, false
	}
	kind := ports.ActionKind(call.Tool)
	known := false
	for _, t := range tools {
		if t.Name == kind {
			known = true
			break
		}
	}
	if !known {
		return ports.Action{}, false
	}
	args := call.Input
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	rest := fenceReplacer.Replace(strings.Replace(text, raw, "", 1))
	return ports.Action{Kind: kind, Args: args, Text: strings.TrimSpace(rest)}, true
}

// extractJSON extrae el primer objeto JSON de un texto libre.
//  1. Elimina bloques de código markdown (```json … ``` o ``` … ```).
//  2. Usa regex para capturar el bloque { … }.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if end := strings.LastIndex(after, "```"); end != -1 {
			after = after[:end]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}
