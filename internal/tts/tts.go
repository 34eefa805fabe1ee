// Package tts is the text-to-speech boundary. The synthesizer is treated as
// an opaque collaborator: text in, audio bytes out. It owns no caching and no
// retry policy; content addressing is the audio cache's responsibility.
package tts

import "context"

// Synthesizer converts text to pronunciation audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
