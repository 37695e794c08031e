// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"
)

const registryInitialCapacity = 32

// Registry is the append-only set of consumed transfer ids.
type Registry struct {
	ids   [][32]byte
	index map[[32]byte]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:   make([][32]byte, 0, registryInitialCapacity),
		index: make(map[[32]byte]struct{}, registryInitialCapacity),
	}
}

// Insert records id, failing if it was seen before.
func (r *Registry) Insert(id [32]byte) error {
	if _, ok := r.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTransferID, TransferIDHex(id))
	}
	r.index[id] = struct{}{}
	r.ids = append(r.ids, id)
	return nil
}

func (r *Registry) Contains(id [32]byte) bool {
	_, ok := r.index[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.ids)
}

// IDs returns the ids in insertion order.
func (r *Registry) IDs() [][32]byte {
	out := make([][32]byte, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Registry) clone() *Registry {
	c := &Registry{
		ids:   r.IDs(),
		index: make(map[[32]byte]struct{}, len(r.index)),
	}
	for id := range r.index {
		c.index[id] = struct{}{}
	}
	return c
}

// MarshalBinary encodes the registry as a Borsh Vec<[u8; 32]>.
func (r *Registry) MarshalBinary() ([]byte, error) {
	w := newWriter()
	w.u32(uint32(len(r.ids)))
	for _, id := range r.ids {
		w.raw(id[:])
	}
	return w.bytes()
}

func (r *Registry) UnmarshalBinary(data []byte) error {
	rd := newReader(data)
	n := rd.u32()
	if rd.err == nil && int64(n)*32 > int64(rd.remaining()) {
		return fmt.Errorf("%w: registry claims %d ids", ErrInvalidParams, n)
	}
	fresh := NewRegistry()
	for i := uint32(0); i < n && rd.err == nil; i++ {
		if err := fresh.Insert(rd.id()); err != nil {
			return err
		}
	}
	if err := rd.done(true); err != nil {
		return err
	}
	*r = *fresh
	return nil
}
