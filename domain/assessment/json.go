package assessment

import (
	"bytes"
	"encoding/json"
	"sort"
)

// MarshalJSON writes the row keyed by source header names: the ten canonical
// columns always (null when absent), then identity columns the sheet carried.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fields := []struct {
		key string
		val interface{}
	}{
		{ColYear, r.Year},
		{ColGrade, r.Grade},
		{ColCategory, r.Category},
		{ColNumberTested, r.NumberTested},
		{ColMeanScaleScore, r.MeanScaleScore},
		{ColPctLevel1, r.PctLevel1},
		{ColPctLevel2, r.PctLevel2},
		{ColPctLevel3, r.PctLevel3},
		{ColPctLevel4, r.PctLevel4},
		{ColPctLevel3Plus4, r.PctLevel3Plus4},
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, f.key, f.val); err != nil {
			return nil, err
		}
	}
	for _, iv := range r.Identity {
		buf.WriteByte(',')
		if err := writePair(&buf, iv.Column, iv.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writePair(buf *bytes.Buffer, key string, val interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// Labels returns the payload's labels in lexical order.
func (p Payload) Labels() []Label {
	labels := make([]Label, 0, len(p))
	for l := range p {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
