package services

import "context"

// AudioIO abstracts speech synthesis and recognition. The production
// implementation lives at the delivery edge; tests inject a fake.
type AudioIO interface {
	// Speak starts reading text aloud and returns a handle that cancels the
	// playback.
	Speak(ctx context.Context, text string) (CancelFunc, error)
	// Listen records one utterance and returns its transcript.
	Listen(ctx context.Context) (string, error)
}

type CancelFunc func()

// NoopAudio is the default AudioIO for deployments without a speech backend.
type NoopAudio struct{}

func (NoopAudio) Speak(ctx context.Context, text string) (CancelFunc, error) {
	return func() {}, nil
}

func (NoopAudio) Listen(ctx context.Context) (string, error) {
	return "", nil
}
