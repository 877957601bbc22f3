package proto

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hearthchat/hearth-server/internal/core"
)

func TestFrameRoundTrip(t *testing.T) {
	msg := core.Message{
		Sender: "[magenta]alice[/magenta]",
		House:  core.HomeHouse,
		Room:   "bob",
		Text:   "hello",
		Action: "add_house",
		Data: map[string]any{
			"house": map[string]any{
				"name":    "devs",
				"rooms":   []any{"general"},
				"members": map[string]any{"alice": "red"},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, FromMessage(msg), DefaultMaxFrameSize); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	f, err := ReadFrame(&buf, DefaultMaxFrameSize)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	got := f.Message()
	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, msg)
	}
}

func TestFrameRoundTripAtMaximumSize(t *testing.T) {
	const max = 64 * 1024
	// Leave headroom for the JSON envelope around the text field.
	msg := core.Message{
		Sender: "alice",
		House:  core.HomeHouse,
		Room:   core.GeneralRoom,
		Text:   strings.Repeat("x", max-256),
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, FromMessage(msg), max); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	f, err := ReadFrame(&buf, max)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Text != msg.Text {
		t.Fatal("large payload corrupted in transit")
	}
}

func TestWriteFrameRejectsOversize(t *testing.T) {
	msg := core.Message{Sender: "alice", Text: strings.Repeat("x", 1024)}

	var buf bytes.Buffer
	err := WriteFrame(&buf, FromMessage(msg), 128)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("no bytes may be written for a rejected frame")
	}
}

func TestReadFrameRejectsOversizePrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRaw(&buf, bytes.Repeat([]byte("x"), 1024), 2048); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	_, err := ReadRaw(&buf, 128)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestBackToBackFramesDoNotConcatenate(t *testing.T) {
	var buf bytes.Buffer
	for _, text := range []string{"first", "second", "third"} {
		f := Frame{Sender: "alice", House: core.HomeHouse, Room: "bob", Text: text}
		if err := WriteFrame(&buf, f, DefaultMaxFrameSize); err != nil {
			t.Fatalf("write frame %q: %v", text, err)
		}
	}

	for _, want := range []string{"first", "second", "third"} {
		f, err := ReadFrame(&buf, DefaultMaxFrameSize)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if f.Text != want {
			t.Fatalf("frame boundary violated: got %q, want %q", f.Text, want)
		}
	}
}
