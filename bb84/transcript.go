package bb84

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxFrameBytes bounds a single transcript frame, so a corrupt length prefix
// cannot trigger a huge allocation.
const maxFrameBytes = 64 << 20

// A frameWriter writes framed protocol buffers to the wire.
// The structure of the frame is trivial: proto-length | proto
type frameWriter struct {
	w io.Writer
}

func (f frameWriter) Write(m proto.Message) error {
	marshalled, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	if err := binary.Write(f.w, binary.LittleEndian, int32(len(marshalled))); err != nil {
		return err
	}
	_, err = f.w.Write(marshalled)
	return err
}

type frameReader struct {
	r io.Reader
}

// Read decodes the next frame into m. It returns io.EOF only at a frame
// boundary.
func (f frameReader) Read(m proto.Message) error {
	var mLen int32
	if err := binary.Read(f.r, binary.LittleEndian, &mLen); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated frame header: %w", err)
		}
		return err
	}
	if mLen < 0 || mLen > maxFrameBytes {
		return fmt.Errorf("invalid frame length %d", mLen)
	}
	marshalled := make([]byte, mLen)
	if _, err := io.ReadFull(f.r, marshalled); err != nil {
		return fmt.Errorf("reading %d byte frame: %w", mLen, err)
	}
	return proto.Unmarshal(marshalled, m)
}

// WriteTranscript writes res to w as a sequence of frames: a header frame
// holding the run summary, followed by one frame per trace step, each a
// google.protobuf.Struct.
func WriteTranscript(w io.Writer, res RunResult) error {
	fw := frameWriter{w: w}
	summary := res
	summary.Steps = nil
	header, err := toStruct(summary)
	if err != nil {
		return fmt.Errorf("encoding transcript header: %w", err)
	}
	delete(header.Fields, "steps")
	if err := fw.Write(header); err != nil {
		return fmt.Errorf("writing transcript header: %w", err)
	}
	for _, s := range res.Steps {
		st, err := toStruct(s)
		if err != nil {
			return fmt.Errorf("encoding step %s: %w", s.Name, err)
		}
		if err := fw.Write(st); err != nil {
			return fmt.Errorf("writing step %s: %w", s.Name, err)
		}
	}
	return nil
}

// ReadTranscript reads a transcript written by WriteTranscript. Step
// payloads come back in their generic JSON form.
func ReadTranscript(r io.Reader) (RunResult, error) {
	fr := frameReader{r: r}
	header := new(structpb.Struct)
	if err := fr.Read(header); err != nil {
		if errors.Is(err, io.EOF) {
			return RunResult{}, errors.New("empty transcript")
		}
		return RunResult{}, fmt.Errorf("reading transcript header: %w", err)
	}
	var res RunResult
	if err := fromStruct(header, &res); err != nil {
		return RunResult{}, fmt.Errorf("decoding transcript header: %w", err)
	}
	for {
		st := new(structpb.Struct)
		err := fr.Read(st)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RunResult{}, fmt.Errorf("reading step %d: %w", len(res.Steps), err)
		}
		var s Step
		if err := fromStruct(st, &s); err != nil {
			return RunResult{}, fmt.Errorf("decoding step %d: %w", len(res.Steps), err)
		}
		res.Steps = append(res.Steps, s)
	}
	return res, nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, err
	}
	return st, nil
}

func fromStruct(st *structpb.Struct, v interface{}) error {
	b, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
