package transcripts

import "errors"

var (
	ErrNoAudioSource       = errors.New("episode has no audio enclosure")
	ErrMissingCredential   = errors.New("transcription credential not provided")
	ErrTooLarge            = errors.New("content exceeds size limit")
	ErrTranscriptionFailed = errors.New("transcription failed")
)
