package dap

import (
	"context"
	"fmt"
	"io"
)

// Sequence markers. Each occupies a 4-byte slot: the marker then three
// zero bytes.
const (
	StartOfInstance byte = 0x5A
	EndOfSequence   byte = 0xA5 // int8(-91)

	markerLen = 4
)

// framing decodes the rows of one Sequence from r.
type framing interface {
	decodeRows(ctx context.Context, s *Sequence, r io.Reader, peer *Peer, sink ProgressSink) error
}

// currentFraming reads a marker before every row and stops at the
// end-of-sequence marker.
type currentFraming struct{}

func (currentFraming) decodeRows(ctx context.Context, s *Sequence, r io.Reader, peer *Peer, sink ProgressSink) error {
	for {
		marker, err := readMarker(r, sink)
		if err != nil {
			if isEOF(err) {
				return fmt.Errorf("sequence %q: %w", s.name, ErrTruncated)
			}
			return err
		}
		switch marker {
		case StartOfInstance:
			if err := s.decodeRow(ctx, r, peer, sink); err != nil {
				if isEOF(err) {
					return fmt.Errorf("sequence %q: %w", s.name, ErrTruncated)
				}
				return err
			}
		case EndOfSequence:
			return nil
		default:
			return &FramingError{Sequence: s.name, Marker: marker}
		}
	}
}

// legacyFraming reads rows back to back until the stream ends. Old servers
// cannot say when a sequence is finished, so end of stream is the normal
// terminator and a partially read row is dropped.
type legacyFraming struct{}

func (legacyFraming) decodeRows(ctx context.Context, s *Sequence, r io.Reader, peer *Peer, sink ProgressSink) error {
	for {
		if err := s.decodeRow(ctx, r, peer, sink); err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}
	}
}

// Decode reads rows from r and appends them in stream order. Rows decoded
// before a failure or cancellation stay appended.
//
// Only one Decode runs per instance at a time. A nil peer means
// DefaultVersion; a nil sink is allowed.
func (s *Sequence) Decode(ctx context.Context, r io.Reader, peer *Peer, sink ProgressSink) error {
	s.decodeMu.Lock()
	defer s.decodeMu.Unlock()

	if peer == nil {
		peer = defaultPeer
	}
	return peer.framing.decodeRows(ctx, s, r, peer, sink)
}

// decodeRow clones the template into a new row, decodes every element in
// template order and appends the row.
func (s *Sequence) decodeRow(ctx context.Context, r io.Reader, peer *Peer, sink ProgressSink) error {
	row := s.NewRow()
	for _, v := range row {
		if err := checkCancelled(ctx, sink); err != nil {
			return err
		}
		if err := v.Decode(ctx, r, peer, sink); err != nil {
			return err
		}
	}
	s.rows = append(s.rows, row)
	return nil
}

// Encode writes every row prefixed by a start-of-instance marker, then one
// end-of-sequence marker. Nested sequences emit their own markers into the
// same stream.
func (s *Sequence) Encode(w io.Writer) error {
	for _, row := range s.rows {
		if err := writeMarker(w, StartOfInstance); err != nil {
			return err
		}
		for _, v := range row {
			if err := v.Encode(w); err != nil {
				return err
			}
		}
	}
	return writeMarker(w, EndOfSequence)
}

func readMarker(r io.Reader, sink ProgressSink) (byte, error) {
	var buf [markerLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	report(sink, markerLen)
	return buf[0], nil
}

func writeMarker(w io.Writer, marker byte) error {
	_, err := w.Write([]byte{marker, 0, 0, 0})
	return err
}
