package client

import "context"

// VisionClient is a caption-capable vision model backend. Query sends one
// prompt with one base64-encoded image and returns the model's natural
// language reply. Calls are synchronous and blocking for the duration of
// model inference; there is no retry contract.
type VisionClient interface {
	Query(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
