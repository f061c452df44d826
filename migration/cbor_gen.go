package migration

import (
	"bytes"
	"fmt"
	"io"

	cbg "github.com/whyrusleeping/cbor-gen"
)

// Wire encoding for MigrationTask and the auto-limits setting.
// Both are small enough that generating a full cbor-gen file isn't
// worth the build-time dependency; these are hand-maintained in the same
// major-type-header style cbor-gen itself emits, using the same
// github.com/whyrusleeping/cbor-gen runtime helpers a generated file would
// call into. gen/gen.go documents the struct shape this was grounded on.

const maxCborByteArray = 1 << 20

// MigrationTask is persisted as a 6-element CBOR array:
//
//	[current_top, current_child, prev_tick_child, size, top_items, child_items]
//
// current_top and current_child are optional byte strings, each encoded as
// a CBOR array of zero elements (absent) or one element (present, which
// may itself be the empty byte string). DynTopItems, DynChildItems and
// DynSize are tick-local accumulators and are never encoded.
func (t *MigrationTask) MarshalCBOR() ([]byte, error) {
	if t == nil {
		return cbg.CborNull, nil
	}
	buf := new(bytes.Buffer)

	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajArray, 6); err != nil {
		return nil, err
	}
	if err := writeOptByteString(buf, t.CurrentTop); err != nil {
		return nil, err
	}
	if err := writeOptByteString(buf, t.CurrentChild); err != nil {
		return nil, err
	}
	if err := writeBool(buf, t.PrevTickChild); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, uint64(t.Size)); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, uint64(t.TopItems)); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, uint64(t.ChildItems)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *MigrationTask) UnmarshalCBOR(data []byte) error {
	br := cbg.NewCborReader(bytes.NewReader(data))

	maj, extra, err := br.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajArray || extra != 6 {
		return fmt.Errorf("migration: MigrationTask: expected 6-element array, got major=%d len=%d", maj, extra)
	}

	if t.CurrentTop, err = readOptByteString(br); err != nil {
		return fmt.Errorf("reading current_top: %w", err)
	}
	if t.CurrentChild, err = readOptByteString(br); err != nil {
		return fmt.Errorf("reading current_child: %w", err)
	}
	if t.PrevTickChild, err = readBool(br); err != nil {
		return fmt.Errorf("reading prev_tick_child: %w", err)
	}
	size, err := readUint32(br)
	if err != nil {
		return fmt.Errorf("reading size: %w", err)
	}
	topItems, err := readUint32(br)
	if err != nil {
		return fmt.Errorf("reading top_items: %w", err)
	}
	childItems, err := readUint32(br)
	if err != nil {
		return fmt.Errorf("reading child_items: %w", err)
	}

	t.Size = size
	t.TopItems = topItems
	t.ChildItems = childItems
	t.DynTopItems, t.DynChildItems, t.DynSize = 0, 0, 0
	return nil
}

// autoLimitsCBOR wraps the automatic-migration limits setting: a CBOR
// array of zero elements when automatic migration is disabled, or of two
// elements [size, item] when enabled.
type autoLimitsCBOR struct {
	limits *MigrationLimits
}

func (a *autoLimitsCBOR) MarshalCBOR() ([]byte, error) {
	buf := new(bytes.Buffer)
	if a.limits == nil {
		if err := cbg.WriteMajorTypeHeader(buf, cbg.MajArray, 0); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajArray, 2); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, uint64(a.limits.Size)); err != nil {
		return nil, err
	}
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajUnsignedInt, uint64(a.limits.Item)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *autoLimitsCBOR) UnmarshalCBOR(data []byte) error {
	br := cbg.NewCborReader(bytes.NewReader(data))
	maj, extra, err := br.ReadHeader()
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return fmt.Errorf("migration: auto limits: expected array, got major=%d", maj)
	}
	switch extra {
	case 0:
		a.limits = nil
		return nil
	case 2:
		size, err := readUint32(br)
		if err != nil {
			return err
		}
		item, err := readUint32(br)
		if err != nil {
			return err
		}
		a.limits = &MigrationLimits{Size: size, Item: item}
		return nil
	default:
		return fmt.Errorf("migration: auto limits: expected 0 or 2 element array, got %d", extra)
	}
}

func writeOptByteString(w io.Writer, b *[]byte) error {
	if b == nil {
		return cbg.WriteMajorTypeHeader(w, cbg.MajArray, 0)
	}
	if err := cbg.WriteMajorTypeHeader(w, cbg.MajArray, 1); err != nil {
		return err
	}
	if err := cbg.WriteMajorTypeHeader(w, cbg.MajByteString, uint64(len(*b))); err != nil {
		return err
	}
	_, err := w.Write(*b)
	return err
}

func readOptByteString(br *cbg.CborReader) (*[]byte, error) {
	maj, extra, err := br.ReadHeader()
	if err != nil {
		return nil, err
	}
	if maj != cbg.MajArray {
		return nil, fmt.Errorf("expected array, got major=%d", maj)
	}
	switch extra {
	case 0:
		return nil, nil
	case 1:
		raw, err := cbg.ReadByteArray(br, maxCborByteArray)
		if err != nil {
			return nil, err
		}
		return &raw, nil
	default:
		return nil, fmt.Errorf("expected 0 or 1 element array, got %d", extra)
	}
}

func writeBool(w io.Writer, v bool) error {
	if v {
		_, err := w.Write(cbg.CborBoolTrue)
		return err
	}
	_, err := w.Write(cbg.CborBoolFalse)
	return err
}

func readBool(br *cbg.CborReader) (bool, error) {
	maj, extra, err := br.ReadHeader()
	if err != nil {
		return false, err
	}
	if maj != cbg.MajOther {
		return false, fmt.Errorf("expected bool, got major=%d", maj)
	}
	switch extra {
	case 20:
		return false, nil
	case 21:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value %d", extra)
	}
}

func readUint32(br *cbg.CborReader) (uint32, error) {
	maj, extra, err := br.ReadHeader()
	if err != nil {
		return 0, err
	}
	if maj != cbg.MajUnsignedInt {
		return 0, fmt.Errorf("expected uint, got major=%d", maj)
	}
	if extra > 1<<32-1 {
		return 0, fmt.Errorf("uint32 overflow: %d", extra)
	}
	return uint32(extra), nil
}
