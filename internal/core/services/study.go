package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-study/internal/logger"
)

// Ensure StudyService implements the interface.
var _ driving.StudyService = (*StudyService)(nil)

// DefaultStudyQuery drives retrieval for whole-document modes when no topic
// is given.
const DefaultStudyQuery = "main concepts key points important information summary"

// optionLabels are assigned to MCQ options that arrive unlabelled.
var optionLabels = []string{"A", "B", "C", "D"}

var (
	fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

// promptData is the template context of every prompt.
type promptData struct {
	Context  string
	Input    string
	NumItems int
	Error    string
}

// StudyService dispatches study requests: it retrieves context, renders the
// mode's prompt, calls the LLM and parses structured output.
type StudyService struct {
	retriever   driving.RetrievalService
	llm         driven.LLMService
	prompts     driven.PromptStore
	sessions    driven.SessionStore
	topK        int
	temperature float64
}

// NewStudyService creates a new study service. sessions may be nil, in
// which case session IDs are ignored.
func NewStudyService(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	sessions driven.SessionStore,
	cfg domain.RuntimeConfig,
) *StudyService {
	topK := cfg.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &StudyService{
		retriever:   retriever,
		llm:         llm,
		prompts:     prompts,
		sessions:    sessions,
		topK:        topK,
		temperature: cfg.LLMTemperature,
	}
}

// Modes lists the supported study modes.
func (s *StudyService) Modes() []domain.Mode {
	return domain.AllModes()
}

// Ask answers one study request grounded in req.DocID.
func (s *StudyService) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, req.Mode)
	}
	if strings.TrimSpace(req.DocID) == "" {
		return nil, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}
	input := strings.TrimSpace(req.Input)
	if req.Mode == domain.ModeExplain && input == "" {
		return nil, fmt.Errorf("%w: explain needs a question", domain.ErrInvalidInput)
	}
	if req.NumItems < 0 || req.TopK < 0 {
		return nil, fmt.Errorf("%w: num_items and top_k must not be negative", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Study: " + req.Mode.String())

	k := req.TopK
	if k == 0 {
		k = s.topK
	}
	hits, err := s.retriever.Retrieve(ctx, req.DocID, retrievalQuery(req.Mode, input), k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%w: no content retrieved for %s", domain.ErrNotFound, req.DocID)
	}

	data := promptData{
		Context:  buildContext(hits),
		Input:    input,
		NumItems: clampItems(req.NumItems),
	}

	answer := &domain.Answer{
		Mode:      req.Mode,
		DocID:     req.DocID,
		Citations: make([]domain.Citation, len(hits)),
	}
	for i, h := range hits {
		answer.Citations[i] = h.Citation()
	}

	session := s.session(req.SessionID)
	if session != nil {
		answer.SessionID = session.ID
	}

	switch req.Mode {
	case domain.ModeExplain:
		if session != nil {
			answer.Content, err = s.chat(ctx, session, data)
		} else {
			answer.Content, err = s.generate(ctx, driven.PromptExplain, data)
		}
	case domain.ModeSummarize:
		answer.Content, err = s.generate(ctx, driven.PromptSummarize, data)
	case domain.ModeFlashcards:
		answer.Flashcards, err = s.flashcards(ctx, data)
		if err == nil && len(answer.Flashcards) < data.NumItems {
			answer.Warning = fmt.Sprintf("generated %d of %d requested flashcards", len(answer.Flashcards), data.NumItems)
		}
	case domain.ModeMCQ:
		answer.Questions, err = s.questions(ctx, data)
		if err == nil && len(answer.Questions) < data.NumItems {
			answer.Warning = fmt.Sprintf("generated %d of %d requested questions", len(answer.Questions), data.NumItems)
		}
	}
	if err != nil {
		return nil, err
	}

	if session != nil {
		s.record(session.ID, req, input, answer)
	}
	return answer, nil
}

// retrievalQuery picks the text embedded for retrieval.
func retrievalQuery(mode domain.Mode, input string) string {
	if mode == domain.ModeExplain || input != "" {
		return input
	}
	return DefaultStudyQuery
}

func clampItems(n int) int {
	switch {
	case n <= 0:
		return domain.DefaultNumItems
	case n > domain.MaxNumItems:
		return domain.MaxNumItems
	default:
		return n
	}
}

// buildContext joins ranked chunk texts into the prompt's context block.
func buildContext(hits []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[Source " + strconv.Itoa(i+1) + "]\n")
		b.WriteString(strings.TrimSpace(h.Chunk.Content))
	}
	return b.String()
}

// session returns the request's session. An unknown or evicted ID starts a
// fresh session whose ID is returned with the answer.
func (s *StudyService) session(id string) *domain.Session {
	if s.sessions == nil || id == "" {
		return nil
	}
	sess, err := s.sessions.Get(id)
	if err == nil {
		return sess
	}
	logger.Debug("Session %s not found, starting a new one", id)
	return s.sessions.Create()
}

func (s *StudyService) record(id string, req domain.AskRequest, input string, answer *domain.Answer) {
	question := input
	if question == "" {
		question = req.Mode.String()
	}
	reply := answer.Content
	switch {
	case answer.Flashcards != nil:
		reply = fmt.Sprintf("Generated %d flashcards", len(answer.Flashcards))
	case answer.Questions != nil:
		reply = fmt.Sprintf("Generated %d questions", len(answer.Questions))
	}
	err := s.sessions.Append(id, req.DocID,
		domain.Message{Role: domain.RoleUser, Content: question},
		domain.Message{Role: domain.RoleAssistant, Content: reply},
	)
	if err != nil {
		logger.Warn("Failed to record session %s: %v", id, err)
	}
}

func (s *StudyService) render(name string, data promptData) (string, error) {
	text, err := s.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *StudyService) generate(ctx context.Context, name string, data promptData) (string, error) {
	prompt, err := s.render(name, data)
	if err != nil {
		return "", err
	}
	out, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: s.temperature})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// chat answers a follow-up using the session's history.
func (s *StudyService) chat(ctx context.Context, session *domain.Session, data promptData) (string, error) {
	system, err := s.render(driven.PromptChatSystem, data)
	if err != nil {
		return "", err
	}
	prompt, err := s.render(driven.PromptExplain, data)
	if err != nil {
		return "", err
	}

	msgs := make([]driven.ChatMessage, 0, len(session.Messages)+2)
	msgs = append(msgs, driven.ChatMessage{Role: "system", Content: system})
	for _, m := range session.Messages {
		msgs = append(msgs, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, driven.ChatMessage{Role: "user", Content: prompt})

	out, err := s.llm.Chat(ctx, msgs, driven.ChatOptions{Temperature: s.temperature})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// generateStructured asks for JSON and hands it to parse. A parse failure is
// retried once with a corrective instruction; provider errors are not.
func (s *StudyService) generateStructured(
	ctx context.Context, name string, data promptData, parse func(string) error,
) error {
	prompt, err := s.render(name, data)
	if err != nil {
		return err
	}
	opts := driven.GenerateOptions{Temperature: s.temperature, JSON: true}

	raw, err := s.llm.Generate(ctx, prompt, opts)
	if err != nil {
		return err
	}
	parseErr := parse(raw)
	if parseErr == nil {
		return nil
	}
	logger.Debug("Structured output rejected, retrying: %v", parseErr)

	data.Error = parseErr.Error()
	correction, err := s.render(driven.PromptCorrection, data)
	if err != nil {
		return err
	}
	retry := prompt + "\n\nYour previous response was:\n" + raw + "\n\n" + correction

	raw, err = s.llm.Generate(ctx, retry, opts)
	if err != nil {
		return err
	}
	if parseErr := parse(raw); parseErr != nil {
		return fmt.Errorf("%w: %s output: %w", domain.ErrGenerationFormat, name, parseErr)
	}
	return nil
}

func (s *StudyService) flashcards(ctx context.Context, data promptData) ([]domain.Flashcard, error) {
	var cards []domain.Flashcard
	err := s.generateStructured(ctx, driven.PromptFlashcards, data, func(raw string) error {
		var err error
		cards, err = parseFlashcards(raw, data.NumItems)
		return err
	})
	return cards, err
}

func (s *StudyService) questions(ctx context.Context, data promptData) ([]domain.MCQuestion, error) {
	var qs []domain.MCQuestion
	err := s.generateStructured(ctx, driven.PromptMCQ, data, func(raw string) error {
		var err error
		qs, err = parseQuestions(raw, data.NumItems)
		return err
	})
	return qs, err
}

// extractJSON returns the JSON object in an LLM response, which may be
// wrapped in a markdown fence or surrounded by prose.
func extractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object found")
	}
	return text[start : end+1], nil
}

// parseFlashcards decodes {"flashcards": [...]}, dropping incomplete cards
// and keeping at most limit.
func parseFlashcards(raw string, limit int) ([]domain.Flashcard, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Flashcards []domain.Flashcard `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	cards := make([]domain.Flashcard, 0, len(payload.Flashcards))
	for _, c := range payload.Flashcards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		c.Mnemonic = strings.TrimSpace(c.Mnemonic)
		if c.Front == "" || c.Back == "" {
			continue
		}
		cards = append(cards, c)
	}
	if len(cards) == 0 {
		return nil, errors.New(`"flashcards" must contain at least one card with front and back`)
	}
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

type rawQuestion struct {
	Question     string             `json:"question"`
	Options      []domain.MCQOption `json:"options"`
	CorrectIndex *int               `json:"correct_index"`
	Difficulty   string             `json:"difficulty"`
	Topic        string             `json:"topic"`
}

// parseQuestions decodes {"questions": [...]}. Questions without exactly
// four options and exactly one correct option are dropped; at most limit are
// kept.
func parseQuestions(raw string, limit int) ([]domain.MCQuestion, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var (
		qs       []domain.MCQuestion
		firstErr error
	)
	for i, rq := range payload.Questions {
		q, err := validQuestion(rq)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("question %d: %w", i+1, err)
			}
			continue
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		if firstErr == nil {
			firstErr = errors.New(`"questions" must contain at least one question`)
		}
		return nil, firstErr
	}
	if len(qs) > limit {
		qs = qs[:limit]
	}
	return qs, nil
}

func validQuestion(rq rawQuestion) (domain.MCQuestion, error) {
	q := domain.MCQuestion{
		Question:   strings.TrimSpace(rq.Question),
		Options:    rq.Options,
		Difficulty: strings.TrimSpace(rq.Difficulty),
		Topic:      strings.TrimSpace(rq.Topic),
	}
	if q.Question == "" {
		return q, errors.New("question text is empty")
	}
	if len(q.Options) != len(optionLabels) {
		return q, fmt.Errorf("has %d options, want %d", len(q.Options), len(optionLabels))
	}

	correct := -1
	for i := range q.Options {
		q.Options[i].Text = strings.TrimSpace(q.Options[i].Text)
		if q.Options[i].Text == "" {
			return q, fmt.Errorf("option %d text is empty", i+1)
		}
		if q.Options[i].Label == "" {
			q.Options[i].Label = optionLabels[i]
		}
		if q.Options[i].IsCorrect {
			if correct >= 0 {
				return q, errors.New("has more than one correct option")
			}
			correct = i
		}
	}
	if correct < 0 && rq.CorrectIndex != nil && *rq.CorrectIndex >= 0 && *rq.CorrectIndex < len(q.Options) {
		correct = *rq.CorrectIndex
		q.Options[correct].IsCorrect = true
	}
	if correct < 0 {
		return q, errors.New("has no correct option")
	}
	q.CorrectIndex = correct
	return q, nil
}
