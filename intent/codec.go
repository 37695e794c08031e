// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// writer accumulates Borsh-encoded fields, keeping the first error.
type writer struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter() *writer {
	buf := new(bytes.Buffer)
	return &writer{buf: buf, enc: bin.NewBorshEncoder(buf)}
}

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *writer) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *writer) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, binary.LittleEndian)
	}
}

func (w *writer) i32(v int32) {
	if w.err == nil {
		w.err = w.enc.WriteInt32(v, binary.LittleEndian)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *writer) raw(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *writer) key(pk solana.PublicKey) {
	w.raw(pk[:])
}

// blob writes a u32 length prefix followed by b.
func (w *writer) blob(b []byte) {
	w.u32(uint32(len(b)))
	w.raw(b)
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// reader decodes Borsh-encoded fields, keeping the first error.
type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(data []byte) *reader {
	return &reader{dec: bin.NewBorshDecoder(data)}
}

func (r *reader) fail(err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.fail(err)
	return v
}

func (r *reader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.fail(err)
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(binary.LittleEndian)
	r.fail(err)
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(binary.LittleEndian)
	r.fail(err)
	return v
}

func (r *reader) i32() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt32(binary.LittleEndian)
	r.fail(err)
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.fail(err)
	return v
}

func (r *reader) raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.dec.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidParams, n, r.dec.Remaining())
		return nil
	}
	v, err := r.dec.ReadNBytes(n)
	r.fail(err)
	return v
}

func (r *reader) key() solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], r.raw(solana.PublicKeyLength))
	return pk
}

func (r *reader) id() [32]byte {
	var id [32]byte
	copy(id[:], r.raw(32))
	return id
}

// blob reads a u32 length prefix and rejects lengths above limit.
func (r *reader) blob(limit int) []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if int64(n) > int64(limit) {
		r.err = fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidParams, n, limit)
		return nil
	}
	return r.raw(int(n))
}

func (r *reader) remaining() int {
	return r.dec.Remaining()
}

// done reports the first error, or trailing bytes when strict.
func (r *reader) done(strict bool) error {
	if r.err != nil {
		return r.err
	}
	if strict && r.dec.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidParams, r.dec.Remaining())
	}
	return nil
}
