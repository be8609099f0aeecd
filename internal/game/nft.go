package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// nftRow mirrors one game.nfts record.
type nftRow struct {
	Serial       int64
	BusinessType BusinessType
	Level        int32
	Owner        string
	Supply       int64
}

func loadNFTTx(ctx context.Context, tx pgx.Tx, serial int64, forUpdate bool) (*nftRow, error) {
	query := `
		SELECT serial, business_type, level, owner, supply
		FROM game.nfts
		WHERE serial = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var n nftRow
	var btype int32
	err := tx.QueryRow(ctx, query, serial).Scan(&n.Serial, &btype, &n.Level, &n.Owner, &n.Supply)
	if err == pgx.ErrNoRows {
		return nil, ErrNFTNotFound
	}
	if err != nil {
		return nil, err
	}
	n.BusinessType = BusinessType(btype)
	return &n, nil
}

// TransferNFT records a marketplace-style change of hands for a position
// NFT. It only moves the token; SyncBusinessOwner later reconciles the
// business state with the new holder.
func (s *Service) TransferNFT(ctx context.Context, in TransferNFTInput) error {
	if err := ValidateAddress(in.NewOwner); err != nil {
		return err
	}
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.CallerAddress, in.IdempotencyKey, "transfer_nft"); err != nil {
			return err
		}
		n, err := loadNFTTx(ctx, tx, in.Serial, true)
		if err != nil {
			return err
		}
		if n.Supply == 0 {
			return ErrNFTBurned
		}
		if n.Owner != in.CallerAddress {
			return ErrUnauthorized
		}
		_, err = tx.Exec(ctx, `
			UPDATE game.nfts SET owner = $1, updated_at = now() WHERE serial = $2
		`, in.NewOwner, in.Serial)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("nft transferred", "serial", in.Serial, "from", in.CallerAddress, "to", in.NewOwner)
	return nil
}

// BurnNFT zeroes the token supply. The linked business stays on the books
// until DeactivateBurned observes the zero supply and retires it.
func (s *Service) BurnNFT(ctx context.Context, in BurnNFTInput) error {
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.CallerAddress, in.IdempotencyKey, "burn_nft"); err != nil {
			return err
		}
		n, err := loadNFTTx(ctx, tx, in.Serial, true)
		if err != nil {
			return err
		}
		if n.Supply == 0 {
			return ErrNFTBurned
		}
		if n.Owner != in.CallerAddress {
			return ErrUnauthorized
		}
		st, err := loadStateTx(ctx, tx, true)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.nfts SET supply = 0, burned_at = now() WHERE serial = $1
		`, in.Serial); err != nil {
			return err
		}
		if err := st.RecordBurn(); err != nil {
			return err
		}
		return saveStateTx(ctx, tx, st)
	})
	if err != nil {
		return err
	}
	s.log.Info("nft burned", "serial", in.Serial, "owner", in.CallerAddress)
	return nil
}

// SyncBusinessOwner reconciles a business whose NFT changed hands. The
// business leaves the seller's slot and lands in the buyer's lowest free
// slot; the buyer must be a registered player with room. Anyone may call it.
func (s *Service) SyncBusinessOwner(ctx context.Context, in SyncOwnerInput) (SyncOwnerResult, error) {
	var out SyncOwnerResult
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		n, err := loadNFTTx(ctx, tx, in.Serial, true)
		if err != nil {
			return err
		}
		if n.Supply == 0 {
			return ErrNFTBurned
		}

		var prevOwner string
		var prevSlot int
		err = tx.QueryRow(ctx, `
			SELECT player_address, slot_index
			FROM game.businesses
			WHERE nft_serial = $1
			FOR UPDATE
		`, in.Serial).Scan(&prevOwner, &prevSlot)
		if err == pgx.ErrNoRows {
			return ErrNFTNotFound
		}
		if err != nil {
			return err
		}
		if prevOwner == n.Owner {
			return ErrOwnerInSync
		}

		seller, err := loadPlayerTx(ctx, tx, prevOwner, true)
		if err != nil {
			return err
		}
		buyer, err := loadPlayerTx(ctx, tx, n.Owner, true)
		if err != nil {
			return err
		}
		b, _, err := seller.Slots.Remove(prevSlot)
		if err != nil {
			return err
		}
		freeIdx, ok := buyer.Slots.FreeSlot()
		if !ok {
			return ErrNoFreeSlot
		}
		if err := buyer.Slots.Place(freeIdx, b); err != nil {
			return err
		}

		if err := deleteBusinessTx(ctx, tx, prevOwner, prevSlot); err != nil {
			return err
		}
		if err := insertBusinessTx(ctx, tx, n.Owner, freeIdx, b); err != nil {
			return err
		}
		// Principal follows the position to its new owner; the seller's
		// cumulative totals are history and stay put.
		if err := buyer.RecordInvestment(b.InvestedLamports); err != nil {
			return err
		}
		buyer.ScheduleFirstAccrual(s.clock())
		if err := savePlayerTx(ctx, tx, seller); err != nil {
			return err
		}
		if err := savePlayerTx(ctx, tx, buyer); err != nil {
			return err
		}
		out = SyncOwnerResult{
			PreviousOwner: prevOwner,
			NewOwner:      n.Owner,
			NewSlotIndex:  freeIdx,
		}
		return nil
	})
	if err != nil {
		return SyncOwnerResult{}, err
	}
	s.log.Info("business owner synced",
		"serial", in.Serial,
		"from", out.PreviousOwner,
		"to", out.NewOwner,
		"slot", out.NewSlotIndex,
	)
	return out, nil
}

// DeactivateBurned retires the business linked to a burned NFT: the position
// stops accruing and its slot frees up. The invested principal stays in the
// pool; burning the token forfeits it.
func (s *Service) DeactivateBurned(ctx context.Context, serial int64) error {
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		n, err := loadNFTTx(ctx, tx, serial, true)
		if err != nil {
			return err
		}
		if n.Supply != 0 {
			return ErrNFTAlive
		}
		var owner string
		var slotIdx int
		err = tx.QueryRow(ctx, `
			SELECT player_address, slot_index
			FROM game.businesses
			WHERE nft_serial = $1 AND active
			FOR UPDATE
		`, serial).Scan(&owner, &slotIdx)
		if err == pgx.ErrNoRows {
			return ErrBusinessInactive
		}
		if err != nil {
			return err
		}
		p, err := loadPlayerTx(ctx, tx, owner, true)
		if err != nil {
			return err
		}
		b, _, err := p.Slots.Remove(slotIdx)
		if err != nil {
			return err
		}
		if !b.Active {
			return ErrBusinessInactive
		}
		b.Deactivate()
		if err := deleteBusinessTx(ctx, tx, owner, slotIdx); err != nil {
			return err
		}
		return savePlayerTx(ctx, tx, p)
	})
	if err != nil {
		return err
	}
	s.log.Info("burned position retired", "serial", serial)
	return nil
}

// NFTView reports the registry record for one serial.
type NFTView struct {
	Serial       int64  `json:"serial"`
	BusinessName string `json:"business_name"`
	Level        int32  `json:"level"`
	Owner        string `json:"owner"`
	Burned       bool   `json:"burned"`
}

func (s *Service) NFT(ctx context.Context, serial int64) (NFTView, error) {
	var out NFTView
	var btype int32
	var supply int64
	err := s.db.QueryRow(ctx, `
		SELECT serial, business_type, level, owner, supply
		FROM game.nfts
		WHERE serial = $1
	`, serial).Scan(&out.Serial, &btype, &out.Level, &out.Owner, &supply)
	if err == pgx.ErrNoRows {
		return NFTView{}, ErrNFTNotFound
	}
	if err != nil {
		return NFTView{}, err
	}
	bt := BusinessType(btype)
	if !bt.Valid() {
		return NFTView{}, fmt.Errorf("%w: stored type %d", ErrInvalidBusinessType, btype)
	}
	out.BusinessName = bt.Name()
	out.Burned = supply == 0
	return out, nil
}
