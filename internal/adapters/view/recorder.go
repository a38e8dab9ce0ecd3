package view

import (
	"fmt"
	"os"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
)

// Recorder persists the inbound video track as an IVF file.
type Recorder struct {
	file   *os.File
	writer *ivfwriter.IVFWriter
}

func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}
	w, err := ivfwriter.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("new ivf writer: %w", err)
	}
	return &Recorder{file: f, writer: w}, nil
}

func (r *Recorder) WriteRTP(pkt *rtp.Packet) error {
	return r.writer.WriteRTP(pkt)
}

func (r *Recorder) Close() error {
	return r.writer.Close()
}
