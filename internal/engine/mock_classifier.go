package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/llm"
)

// ResponderFunc produces classifier answers for the transaction ids found in a prompt.
type ResponderFunc func(ids []string) ([]llm.Result, error)

// MockClassifier is a test implementation of the Classifier interface.
type MockClassifier struct {
	respond        ResponderFunc
	credentialsErr error
	prompts        []string
	mu             sync.Mutex
}

// NewMockClassifier creates a mock answering with respond. A nil respond
// returns no results for every prompt.
func NewMockClassifier(respond ResponderFunc) *MockClassifier {
	return &MockClassifier{respond: respond}
}

// FailCredentials makes CheckCredentials and Classify return err.
func (m *MockClassifier) FailCredentials(err error) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentialsErr = err
	return m
}

// CheckCredentials returns the error set by FailCredentials.
func (m *MockClassifier) CheckCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentialsErr
}

// Classify records the prompt and answers through the responder.
func (m *MockClassifier) Classify(ctx context.Context, prompt string, _ time.Duration) ([]llm.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	respond, credErr := m.respond, m.credentialsErr
	m.mu.Unlock()

	if credErr != nil {
		return nil, credErr
	}
	if respond == nil {
		return []llm.Result{}, nil
	}
	return respond(PromptTransactionIDs(prompt))
}

// Calls returns how many prompts were classified.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received.
func (m *MockClassifier) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// AnswerAll returns a responder assigning categoryID with confidence to every id.
func AnswerAll(categoryID int, confidence float64) ResponderFunc {
	return func(ids []string) ([]llm.Result, error) {
		results := make([]llm.Result, len(ids))
		for i, id := range ids {
			catID := categoryID
			results[i] = llm.Result{TransactionID: id, CategoryID: &catID, Confidence: confidence}
		}
		return results, nil
	}
}
