package view

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/callo451/deskwise-remote/internal/core"
)

var ErrNotKeyframe = errors.New("frame is not a keyframe")

const ivfTimebase = 30

// WriteIVFSnapshot writes a single keyframe as a one-frame IVF file, the
// screenshot download format of the viewport.
func WriteIVFSnapshot(w io.Writer, frame core.VideoFrame) error {
	if !frame.Keyframe || len(frame.Data) == 0 {
		return ErrNotKeyframe
	}

	header := make([]byte, 32)
	copy(header[0:], "DKIF")
	binary.LittleEndian.PutUint16(header[6:], 32)
	copy(header[8:], "VP80")
	binary.LittleEndian.PutUint16(header[12:], uint16(frame.Width))
	binary.LittleEndian.PutUint16(header[14:], uint16(frame.Height))
	binary.LittleEndian.PutUint32(header[16:], ivfTimebase)
	binary.LittleEndian.PutUint32(header[20:], 1)
	binary.LittleEndian.PutUint32(header[24:], 1)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write ivf header: %w", err)
	}

	frameHeader := make([]byte, 12)
	binary.LittleEndian.PutUint32(frameHeader, uint32(len(frame.Data)))
	if _, err := w.Write(frameHeader); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(frame.Data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
