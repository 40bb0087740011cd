package answers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jobpilot/internal/config"
)

func testProfile() config.Profile {
	return config.Profile{
		FullName:     "Jane Doe",
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@example.com",
		Phone:        "+44 1234 567890",
		City:         "London",
		LinkedIn:     "https://linkedin.com/in/jane",
		GitHub:       "https://github.com/jane",
		NoticePeriod: "1 month",
		YearsOfExp:   "3",
		Education:    "BSc Computer Science",
	}
}

type fakeGen struct {
	answer string
	err    error
	calls  int
	slow   bool
}

func (f *fakeGen) Answer(ctx context.Context, question string) (string, error) {
	f.calls++
	if f.slow {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Minute):
		}
	}
	return f.answer, f.err
}

func TestKnownQuestionsBypassGenerator(t *testing.T) {
	gen := &fakeGen{answer: "should not be used"}
	a := New(testProfile(), gen, time.Second)
	ctx := context.Background()

	tests := map[string]string{
		"Phone number":                          "+44 1234 567890",
		"What is your notice period?":           "1 month",
		"How many years of experience?":         "3",
		"LinkedIn profile URL":                  "https://linkedin.com/in/jane",
		"Do you require visa sponsorship?":      "Yes",
		"Are you willing to relocate?":          "Yes",
		"Expected salary":                       "Negotiable",
		"What is your highest degree?":          "BSc Computer Science",
		"First Name":                            "Jane",
	}
	for q, want := range tests {
		assert.Equal(t, want, a.Resolve(ctx, q), "question %q", q)
	}
	assert.Zero(t, gen.calls)
}

func TestUnknownQuestionGoesToGenerator(t *testing.T) {
	gen := &fakeGen{answer: "I led migration of a monolith to services."}
	a := New(testProfile(), gen, time.Second)

	got := a.Resolve(context.Background(), "Describe a challenging project")
	assert.Equal(t, "I led migration of a monolith to services.", got)
	assert.Equal(t, 1, gen.calls)
}

func TestGeneratorTimeoutYieldsBlank(t *testing.T) {
	gen := &fakeGen{slow: true}
	a := New(testProfile(), gen, 20*time.Millisecond)

	start := time.Now()
	got := a.Resolve(context.Background(), "Describe a challenging project")
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGeneratorErrorYieldsBlank(t *testing.T) {
	gen := &fakeGen{err: errors.New("quota exhausted")}
	a := New(testProfile(), gen, time.Second)

	assert.Empty(t, a.Resolve(context.Background(), "Describe a challenging project"))
}

func TestNilGeneratorYieldsBlank(t *testing.T) {
	a := New(testProfile(), nil, time.Second)
	assert.Empty(t, a.Resolve(context.Background(), "Describe a challenging project"))
}

func TestAnswersAreCachedPerRun(t *testing.T) {
	gen := &fakeGen{answer: "cached answer"}
	a := New(testProfile(), gen, time.Second)
	ctx := context.Background()

	a.Resolve(ctx, "Describe a challenging project")
	a.Resolve(ctx, "describe a challenging project") // same after normalization
	assert.Equal(t, 1, gen.calls)
}

func TestSanitizeKeepsOneShortLine(t *testing.T) {
	assert.Equal(t, "First line.", sanitize("  First line.\nSecond line.\n"))
	assert.Equal(t, "quoted", sanitize(`"quoted"`))

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, sanitize(string(long)), 300)
}
