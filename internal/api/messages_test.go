package api

import (
	"errors"
	"testing"
)

func TestDecodeMessageVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "start recording",
			raw:  `{"type":"start-recording","encounterId":"E1","metadata":{"mimeType":"audio/webm"},"enableTranscription":true}`,
			want: StartRecordingMessage{},
		},
		{
			name: "audio chunk",
			raw:  `{"type":"audio-chunk","sessionId":"s1","chunk":"aGVsbG8=","sequenceNumber":3}`,
			want: AudioChunkMessage{},
		},
		{
			name: "stop recording",
			raw:  `{"type":"stop-recording","sessionId":"s1","transcriptionSessionId":"t1"}`,
			want: StopRecordingMessage{},
		},
		{
			name: "pause",
			raw:  `{"type":"pause-recording","sessionId":"s1"}`,
			want: PauseRecordingMessage{},
		},
		{
			name: "resume",
			raw:  `{"type":"resume-recording","sessionId":"s1"}`,
			want: ResumeRecordingMessage{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeMessage([]byte(tc.raw))
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			switch m := got.(type) {
			case StartRecordingMessage:
				if _, ok := tc.want.(StartRecordingMessage); !ok {
					t.Fatalf("decoded %T, want %T", got, tc.want)
				}
				if m.EncounterID != "E1" || !m.EnableTranscription || m.Metadata.MimeType != "audio/webm" {
					t.Errorf("fields not populated: %+v", m)
				}
			case AudioChunkMessage:
				if _, ok := tc.want.(AudioChunkMessage); !ok {
					t.Fatalf("decoded %T, want %T", got, tc.want)
				}
				if m.SessionID != "s1" || m.Chunk != "aGVsbG8=" || m.SequenceNumber != 3 {
					t.Errorf("fields not populated: %+v", m)
				}
			case StopRecordingMessage:
				if m.SessionID != "s1" || m.TranscriptionSessionID != "t1" {
					t.Errorf("fields not populated: %+v", m)
				}
			case PauseRecordingMessage:
				if m.SessionID != "s1" {
					t.Errorf("fields not populated: %+v", m)
				}
			case ResumeRecordingMessage:
				if m.SessionID != "s1" {
					t.Errorf("fields not populated: %+v", m)
				}
			default:
				t.Fatalf("unexpected decoded type %T", got)
			}
		})
	}
}

func TestDecodeMessageUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"upload-video"}`))
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("got %v, want ErrUnknownMessageType", err)
	}
}

func TestDecodeMessageRejectsInvalidFrames(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":"audio-chunk",`},
		{"missing session id", `{"type":"audio-chunk","chunk":"aGVsbG8=","sequenceNumber":0}`},
		{"chunk not base64", `{"type":"audio-chunk","sessionId":"s1","chunk":"not base64!!","sequenceNumber":0}`},
		{"negative sequence", `{"type":"audio-chunk","sessionId":"s1","chunk":"aGVsbG8=","sequenceNumber":-1}`},
		{"start without encounter", `{"type":"start-recording","metadata":{}}`},
		{"pause without session", `{"type":"pause-recording"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeMessage([]byte(tc.raw)); err == nil {
				t.Error("invalid frame decoded without error")
			}
		})
	}
}
