package attendance

import (
	"context"

	"github.com/sachintanwar1/College-Management-System/internal/faceclient"
)

// Match is the identity a Matcher assigned to a capture.
type Match struct {
	Matched bool
	ID      string
	Name    string
	Score   float64
}

// Matcher identifies the person in a stored capture image.
type Matcher interface {
	Identify(ctx context.Context, imagePath string) (Match, error)
}

// DemoMatcher never recognises anyone. Captures it handles are recorded
// against a generated demo identity.
type DemoMatcher struct{}

func (DemoMatcher) Identify(context.Context, string) (Match, error) {
	return Match{}, nil
}

// RemoteMatcher asks the face recognition service for the closest enrolled
// face above Threshold.
type RemoteMatcher struct {
	Client    *faceclient.Client
	Threshold float64
}

func (m RemoteMatcher) Identify(ctx context.Context, imagePath string) (Match, error) {
	res, err := m.Client.Search(ctx, imagePath, 1, m.Threshold)
	if err != nil {
		return Match{}, err
	}
	if len(res.Matches) == 0 {
		return Match{}, nil
	}
	best := res.Matches[0]
	return Match{Matched: true, ID: best.UserID, Name: best.Name, Score: best.Similarity}, nil
}
