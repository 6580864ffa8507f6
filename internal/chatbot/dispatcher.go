package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

// ErrNoCompletionKey signals a missing completion credential; the handler
// turns it into a 500.
var ErrNoCompletionKey = errors.New("no completion API key configured")

// Query modes.
const (
	ModeDB       = "db"
	ModeInternet = "internet"
)

// ContextBuilder produces the database-grounded context (or a terminal
// conversational outcome).
type ContextBuilder interface {
	BuildPatientContext(ctx context.Context, lastUserMsg, language string) (contextBlock, terminal string, err error)
}

// WebContextBuilder produces the search-grounded context.
type WebContextBuilder interface {
	BuildWebContext(ctx context.Context, query, language string) string
}

// Dispatcher picks db or internet grounding, composes the system prompt and
// makes at most one completion call per turn. Stateless across requests.
type Dispatcher struct {
	db   ContextBuilder
	web  WebContextBuilder
	chat core.ChatProvider
	log  *logger.Logger
}

func NewDispatcher(db ContextBuilder, web WebContextBuilder, chat core.ChatProvider, log *logger.Logger) *Dispatcher {
	return &Dispatcher{db: db, web: web, chat: chat, log: log}
}

// Respond answers one chat turn. Terminal assembler outcomes short-circuit:
// they go straight back to the user without spending a completion call on an
// unanswerable query.
func (d *Dispatcher) Respond(ctx context.Context, messages []core.Message, language, basePrompt, queryType string) (string, error) {
	if d.chat == nil {
		return "", ErrNoCompletionKey
	}

	lastUser := lastUserMessage(messages)

	if queryType == ModeDB {
		contextBlock, terminal, err := d.db.BuildPatientContext(ctx, lastUser, language)
		if err != nil {
			return "", err
		}
		if terminal != "" {
			return terminal, nil
		}
		return d.chat.Complete(ctx, dbSystemPrompt(basePrompt, contextBlock, language), messages)
	}

	webContext := d.web.BuildWebContext(ctx, lastUser, language)
	if webContext == "" {
		webContext = "(No se encontró información relevante en internet para esta consulta.)"
	}
	return d.chat.Complete(ctx, webSystemPrompt(basePrompt, webContext, language), messages)
}

func lastUserMessage(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func dbSystemPrompt(basePrompt, contextBlock, language string) string {
	return fmt.Sprintf(`%s

INFORMACIÓN DEL PACIENTE Y ARCHIVOS:
%s

INSTRUCCIONES IMPORTANTES:
1. Analiza automáticamente si la consulta se refiere a archivos específicos, datos del paciente, o información general.
2. Si se mencionan archivos, busca en el contenido de TODOS los archivos disponibles y responde específicamente.
3. Si se pide información médica, usa las notas médicas disponibles.
4. NUNCA digas que no puedes acceder a los archivos: su contenido está incluido arriba.
5. Responde en el idioma del usuario (%s).
6. Sé específico y profesional en tus respuestas.
7. Usa SOLO la información de la base de datos y archivos (NO uses internet).

HISTORIAL DE LA CONVERSACIÓN:
Tienes acceso al historial completo de la conversación para mantener contexto.`,
		basePrompt, contextBlock, languageName(language))
}

func webSystemPrompt(basePrompt, webContext, language string) string {
	return fmt.Sprintf(`%s

INFORMACIÓN DE INTERNET:
%s

INSTRUCCIONES IMPORTANTES:
1. Usa SOLO la información encontrada en internet.
2. NO digas que no tienes acceso a información en tiempo real: los resultados están incluidos arriba.
3. Compara la información de varias fuentes cuando sea posible.
4. Responde en el idioma del usuario (%s).
5. Sé específico y profesional en tus respuestas.
6. NO uses información de la base de datos (solo internet).

HISTORIAL DE LA CONVERSACIÓN:
Tienes acceso al historial completo de la conversación para mantener contexto.`,
		basePrompt, webContext, languageName(language))
}

func languageName(language string) string {
	switch language {
	case "es":
		return "español"
	case "sw":
		return "swahili"
	default:
		return "inglés"
	}
}
