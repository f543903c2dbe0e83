// Package detect connects the photo library to an external vision model.
// The Ollama implementation ships a photo to a locally running model, parses
// the JSON it returns, and maps free-form object names onto the Norwegian
// detection vocabulary. Transient failures are retried with backoff.
package detect
