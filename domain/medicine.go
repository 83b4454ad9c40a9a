package domain

import "time"

// DDPLayout is the day-granularity layout of expiry dates (date de péremption).
const DDPLayout = "2006-01-02"

// Medicine is a stock item of the pharmacy inventory. Soft-deleted medicines
// keep their data and stock; they are only filtered out of the active views.
type Medicine struct {
	ID            string  `db:"id" json:"id"`
	DCI           string  `db:"dci" json:"dci"`
	NomCommercial string  `db:"nom_commercial" json:"nomCommercial"`
	Stock         int64   `db:"stock" json:"stock"`
	DDP           *string `db:"ddp" json:"ddp"`
	Lot           *string `db:"lot" json:"lot"`
	Cout          float64 `db:"cout" json:"cout"`
	PrixDeVente   float64 `db:"prix_de_vente" json:"prixDeVente"`
	Deleted       bool    `db:"deleted" json:"deleted"`
	Expired       bool    `db:"-" json:"expired"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
	UpdatedAt     string  `db:"updated_at" json:"updatedAt"`
}

// ExpiredAsOf reports whether the expiry date has passed at day granularity:
// a medicine expiring today is still usable, one that expired yesterday is
// not. Absent or unparseable dates never count as expired. The result is
// derived on every read, never stored.
func (m Medicine) ExpiredAsOf(now time.Time) bool {
	if m.DDP == nil || *m.DDP == "" {
		return false
	}
	ddp, err := time.ParseInLocation(DDPLayout, *m.DDP, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return ddp.Before(today)
}
