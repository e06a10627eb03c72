package models

import (
	"fmt"

	"github.com/dmitrijs2005/kosync/internal/codec"
)

const (
	progressFieldDeviceID   = 1
	progressFieldDevice     = 2
	progressFieldPercentage = 3
	progressFieldProgress   = 4
	progressFieldTimestamp  = 5
)

// Progress is the reading position a device reported for one document.
// Percentage is stored as given; nothing clamps it to 0..100. Timestamp is
// supplied by the caller in Unix milliseconds.
type Progress struct {
	DeviceID   string
	Device     string
	Percentage float64
	Progress   string
	Timestamp  uint64
}

func (p Progress) String() string {
	return fmt.Sprintf("Progress{device=%s percentage=%g progress=%q ts=%d}",
		p.Device, p.Percentage, p.Progress, p.Timestamp)
}

func (p Progress) MarshalBinary() ([]byte, error) {
	w := codec.NewRecordWriter()
	w.PutString(progressFieldDeviceID, p.DeviceID)
	w.PutString(progressFieldDevice, p.Device)
	w.PutFloat64(progressFieldPercentage, p.Percentage)
	w.PutString(progressFieldProgress, p.Progress)
	w.PutUint64(progressFieldTimestamp, p.Timestamp)
	return w.Bytes(), nil
}

func (p *Progress) UnmarshalBinary(data []byte) error {
	r, err := codec.NewRecordReader(data)
	if err != nil {
		return err
	}

	var out Progress
	for r.Next() {
		switch r.Field() {
		case progressFieldDeviceID:
			out.DeviceID, err = r.StringValue()
		case progressFieldDevice:
			out.Device, err = r.StringValue()
		case progressFieldPercentage:
			out.Percentage, err = r.Float64()
		case progressFieldProgress:
			out.Progress, err = r.StringValue()
		case progressFieldTimestamp:
			out.Timestamp, err = r.Uint64()
		}
		if err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}

	*p = out
	return nil
}

// ProgressEntry is one user's progress on a document.
type ProgressEntry struct {
	User     string
	Progress Progress
}
