package domain

// DistributionItem is one requested (medicine, quantity) pair of a pending
// cart. It is never persisted; a successful submit turns it into a
// Distribution row.
type DistributionItem struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// DistributeRequest is the submit payload of a distribution cart.
type DistributeRequest struct {
	StaffUser StaffUser          `json:"staffUser"`
	Medicines []DistributionItem `json:"medicines"`
}

// Distribution is one append-only ledger row: a quantity of one medicine
// issued to a staff member. Medicine and staff attributes are denormalized at
// commit time so the audit trail survives later edits.
type Distribution struct {
	ID              string  `db:"id" json:"id"`
	MedicineID      string  `db:"medicine_id" json:"medicineId"`
	MedicineName    string  `db:"medicine_name" json:"medicineName"`
	Quantity        int64   `db:"quantity" json:"quantity"`
	StaffUserID     string  `db:"staff_user_id" json:"staffUserId"`
	StaffUsername   string  `db:"staff_username" json:"staffUsername"`
	StaffFullName   *string `db:"staff_full_name" json:"staffFullName"`
	StaffNationalID string  `db:"staff_national_id" json:"staffNationalId"`
	DistributedBy   string  `db:"distributed_by" json:"distributedBy"`
	DistributedAt   string  `db:"distributed_at" json:"distributedAt"`
}

// DistributeResponse is the consolidated result of one distribution
// transaction: one record per line item, all committed together.
type DistributeResponse struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Distributions []Distribution `json:"distributions"`
}

// DistributionsPage is a ledger query window plus the total number of rows
// matching the filter regardless of the window.
type DistributionsPage struct {
	Items []Distribution `json:"items"`
	Total int64          `json:"total"`
}

// RestoreResponse acknowledges a medicine restore.
type RestoreResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Medicine Medicine `json:"medicine"`
}
