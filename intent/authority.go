// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ModifyPDAAuthority hands the record of transferID to newAuthority. The
// executor and stage are left untouched.
func (e *Executor) ModifyPDAAuthority(signer solana.PublicKey, transferID [32]byte, newAuthority, record solana.PublicKey) error {
	return e.apply("modify_pda_authority", func(tx *txn) error {
		addr, err := e.recordAddress(record, transferID)
		if err != nil {
			return err
		}
		rec, err := tx.loadRecord(addr)
		if err != nil {
			return err
		}
		if !rec.Initialized {
			return ErrNotInitialized
		}
		if rec.TransferID != transferID {
			return fmt.Errorf("%w: record holds %s", ErrInvalidTransferID, TransferIDHex(rec.TransferID))
		}
		if !signer.Equals(rec.Authority) {
			return fmt.Errorf("%w: %s is not the record authority", ErrUnauthorized, signer)
		}
		if newAuthority.IsZero() {
			return fmt.Errorf("%w: zero authority", ErrInvalidParams)
		}
		rec.Authority = newAuthority
		return tx.storeRecord(addr, rec)
	})
}
