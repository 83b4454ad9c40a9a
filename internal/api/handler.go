package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medistock/m/domain"
)

type ctxKey string

const ctxOperator ctxKey = "operator"

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Error codes returned in the {error, message} body.
const (
	codeInvalidQuantity   = "invalid_quantity"
	codeUnknownMedicine   = "unknown_medicine"
	codeInsufficientStock = "insufficient_stock"
	codeNoStaffSelected   = "no_staff_selected"
	codeEmptyCart         = "empty_cart"
	codeStaffNotFound     = "staff_not_found"
	codeNoFieldsProvided  = "no_fields_provided"
	codeMedicineNotFound  = "medicine_not_found"
	codeValidation        = "validation_error"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeInternal          = "internal_error"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db     *sqlx.DB
	secret string
	logger *zap.Logger
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string, logger *zap.Logger) *Handler {
	return &Handler{db: db, secret: secret, logger: logger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.health)
	r.Post("/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/pharmacy", func(r chi.Router) {
			r.Route("/medicines", func(r chi.Router) {
				r.Get("/", h.listMedicines)
				r.Get("/deleted", h.listDeletedMedicines)
				r.Post("/", h.createMedicine)
				r.Patch("/{id}", h.updateMedicine)
				r.Delete("/{id}/soft-delete", h.softDeleteMedicine)
				r.Patch("/{id}/restore", h.restoreMedicine)
				r.Post("/distribute", h.distribute)
			})
			r.Get("/distributions", h.listDistributions)
		})

		pr.Get("/users/by-national-id", h.userByNationalID)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Authentication

type authClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID, username, role string) (string, error) {
	claims := authClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxOperator, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func operatorFromContext(ctx context.Context) (*authClaims, bool) {
	claims, ok := ctx.Value(ctxOperator).(*authClaims)
	return claims, ok
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	claims, ok := operatorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing operator identity")
		return false
	}
	for _, allowedRole := range allowed {
		if claims.Role == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, codeForbidden, "insufficient permissions")
	return false
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "username and password are required")
		return
	}

	var row struct {
		ID       string  `db:"id"`
		Username string  `db:"username"`
		Role     string  `db:"role"`
		Password *string `db:"password"`
	}
	err := h.db.Get(&row, `SELECT id, username, role, password FROM users WHERE username = $1`, req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("look up login user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to look up user")
		return
	}
	// Staff-only users carry no password hash and cannot log in.
	if row.Password == nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(*row.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(row.ID, row.Username, row.Role)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Inventory store

const medicineColumns = `id, dci, nom_commercial, stock, ddp, lot, cout, prix_de_vente, deleted, created_at, updated_at`

func (h *Handler) fetchMedicine(id string) (*domain.Medicine, error) {
	var m domain.Medicine
	err := h.db.Get(&m, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	m.Expired = m.ExpiredAsOf(time.Now())
	return &m, nil
}

func (h *Handler) listMedicinesWhere(w http.ResponseWriter, deleted int) {
	medicines := []domain.Medicine{}
	err := h.db.Select(&medicines, `SELECT `+medicineColumns+` FROM medicines WHERE deleted = $1 ORDER BY nom_commercial`, deleted)
	if err != nil {
		h.logger.Error("list medicines", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to list medicines")
		return
	}
	now := time.Now()
	for i := range medicines {
		medicines[i].Expired = medicines[i].ExpiredAsOf(now)
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	h.listMedicinesWhere(w, 0)
}

func (h *Handler) listDeletedMedicines(w http.ResponseWriter, r *http.Request) {
	h.listMedicinesWhere(w, 1)
}

type medicineCreateRequest struct {
	DCI           string  `json:"dci"`
	NomCommercial string  `json:"nomCommercial"`
	Stock         int64   `json:"stock"`
	DDP           string  `json:"ddp,omitempty"`
	Lot           string  `json:"lot,omitempty"`
	Cout          float64 `json:"cout"`
	PrixDeVente   float64 `json:"prixDeVente"`
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "pharmacist", "admin") {
		return
	}
	var req medicineCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if strings.TrimSpace(req.DCI) == "" || strings.TrimSpace(req.NomCommercial) == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "dci and nomCommercial are required")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "stock cannot be negative")
		return
	}
	if req.Cout <= 0 || req.PrixDeVente <= 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "cout and prixDeVente must be positive")
		return
	}
	if req.DDP != "" {
		if _, err := time.Parse(domain.DDPLayout, req.DDP); err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "ddp must be in YYYY-MM-DD format")
			return
		}
	}

	now := nowStamp()
	id := uuid.NewString()
	_, err := h.db.Exec(`INSERT INTO medicines (id, dci, nom_commercial, stock, ddp, lot, cout, prix_de_vente, deleted, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)`,
		id, req.DCI, req.NomCommercial, req.Stock, nullIfEmpty(req.DDP), nullIfEmpty(req.Lot), req.Cout, req.PrixDeVente, now, now)
	if err != nil {
		h.logger.Error("create medicine", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to create medicine")
		return
	}

	m, err := h.fetchMedicine(id)
	if err != nil {
		h.logger.Error("load created medicine", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to load created medicine")
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

type medicineUpdateRequest struct {
	DCI           *string  `json:"dci"`
	NomCommercial *string  `json:"nomCommercial"`
	Stock         *int64   `json:"stock"`
	DDP           *string  `json:"ddp"`
	Lot           *string  `json:"lot"`
	Cout          *float64 `json:"cout"`
	PrixDeVente   *float64 `json:"prixDeVente"`
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "pharmacist", "admin") {
		return
	}
	id := chi.URLParam(r, "id")
	var req medicineUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.DCI != nil {
		if strings.TrimSpace(*req.DCI) == "" {
			respondError(w, http.StatusBadRequest, codeValidation, "dci cannot be blank")
			return
		}
		set("dci", *req.DCI)
	}
	if req.NomCommercial != nil {
		if strings.TrimSpace(*req.NomCommercial) == "" {
			respondError(w, http.StatusBadRequest, codeValidation, "nomCommercial cannot be blank")
			return
		}
		set("nom_commercial", *req.NomCommercial)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			respondError(w, http.StatusBadRequest, codeValidation, "stock cannot be negative")
			return
		}
		set("stock", *req.Stock)
	}
	if req.DDP != nil {
		// An empty string clears the expiry date.
		if *req.DDP != "" {
			if _, err := time.Parse(domain.DDPLayout, *req.DDP); err != nil {
				respondError(w, http.StatusBadRequest, codeValidation, "ddp must be in YYYY-MM-DD format")
				return
			}
		}
		set("ddp", nullIfEmpty(*req.DDP))
	}
	if req.Lot != nil {
		set("lot", nullIfEmpty(*req.Lot))
	}
	if req.Cout != nil {
		if *req.Cout <= 0 {
			respondError(w, http.StatusBadRequest, codeValidation, "cout must be positive")
			return
		}
		set("cout", *req.Cout)
	}
	if req.PrixDeVente != nil {
		if *req.PrixDeVente <= 0 {
			respondError(w, http.StatusBadRequest, codeValidation, "prixDeVente must be positive")
			return
		}
		set("prix_de_vente", *req.PrixDeVente)
	}

	if len(sets) == 0 {
		respondError(w, http.StatusBadRequest, codeNoFieldsProvided, "at least one field must be provided")
		return
	}

	set("updated_at", nowStamp())
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE medicines SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := h.db.Exec(query, args...)
	if err != nil {
		h.logger.Error("update medicine", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to update medicine")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, codeMedicineNotFound, "medicine not found")
		return
	}

	m, err := h.fetchMedicine(id)
	if err != nil {
		h.logger.Error("load updated medicine", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to load updated medicine")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) setMedicineDeleted(w http.ResponseWriter, r *http.Request, deleted int) (*domain.Medicine, bool) {
	if !h.requireRole(w, r, "pharmacist", "admin") {
		return nil, false
	}
	id := chi.URLParam(r, "id")

	// Stock is deliberately untouched: soft delete only hides the medicine
	// from the active views and from distribution candidacy.
	res, err := h.db.Exec(`UPDATE medicines SET deleted = $1, updated_at = $2 WHERE id = $3`, deleted, nowStamp(), id)
	if err != nil {
		h.logger.Error("toggle medicine deleted flag", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to update medicine")
		return nil, false
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, codeMedicineNotFound, "medicine not found")
		return nil, false
	}

	m, err := h.fetchMedicine(id)
	if err != nil {
		h.logger.Error("load medicine", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to load medicine")
		return nil, false
	}
	return m, true
}

func (h *Handler) softDeleteMedicine(w http.ResponseWriter, r *http.Request) {
	m, ok := h.setMedicineDeleted(w, r, 1)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) restoreMedicine(w http.ResponseWriter, r *http.Request) {
	m, ok := h.setMedicineDeleted(w, r, 0)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, domain.RestoreResponse{
		Success:  true,
		Message:  "Medicine restored successfully",
		Medicine: *m,
	})
}

// Staff directory lookup

const staffColumns = `id, username, email, first_name, last_name, national_id, role`

func (h *Handler) userByNationalID(w http.ResponseWriter, r *http.Request) {
	nationalID := strings.TrimSpace(r.URL.Query().Get("nationalId"))
	if nationalID == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "nationalId is required")
		return
	}

	var u domain.StaffUser
	err := h.db.Get(&u, `SELECT `+staffColumns+` FROM users WHERE national_id = $1`, nationalID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, codeStaffNotFound, "no staff member with this national id")
		return
	}
	if err != nil {
		h.logger.Error("staff lookup", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to look up staff member")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Distribution transaction engine

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "pharmacist", "admin") {
		return
	}
	operator, _ := operatorFromContext(r.Context())

	var req domain.DistributeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.StaffUser.ID == "" {
		respondError(w, http.StatusBadRequest, codeNoStaffSelected, "no staff member selected")
		return
	}
	if len(req.Medicines) == 0 {
		respondError(w, http.StatusBadRequest, codeEmptyCart, "at least one medicine is required")
		return
	}

	// Repeated entries for the same medicine are merged before validation so
	// the stock check sees the cumulative quantity.
	merged := make(map[string]int64)
	for _, item := range req.Medicines {
		if item.ID == "" {
			respondError(w, http.StatusBadRequest, codeValidation, "medicine id is required for each item")
			return
		}
		if item.Quantity < 1 {
			respondError(w, http.StatusBadRequest, codeInvalidQuantity, "quantity must be at least 1")
			return
		}
		merged[item.ID] += item.Quantity
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	// Fixed processing order keeps row lock acquisition deterministic across
	// concurrent transactions.
	sort.Strings(ids)

	// The recipient is re-resolved server side; the client-supplied identity
	// is only trusted for its id.
	var staff domain.StaffUser
	err := h.db.Get(&staff, `SELECT `+staffColumns+` FROM users WHERE id = $1`, req.StaffUser.ID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, codeStaffNotFound, "staff member not found")
		return
	}
	if err != nil {
		h.logger.Error("resolve staff", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to resolve staff member")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		h.logger.Error("begin distribution", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to start distribution")
		return
	}
	defer tx.Rollback()

	// Live stock is re-read inside the transaction: the cart validated
	// against a snapshot, this check is the authoritative one.
	type liveRow struct {
		name  string
		stock int64
	}
	live := make(map[string]liveRow, len(ids))
	var shortages []string
	for _, id := range ids {
		var name string
		var stock int64
		err := tx.QueryRowx(`SELECT nom_commercial, stock FROM medicines WHERE id = $1 AND deleted = 0`, id).Scan(&name, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusBadRequest, codeUnknownMedicine, fmt.Sprintf("medicine %s not found", id))
			return
		}
		if err != nil {
			h.logger.Error("read live stock", zap.Error(err))
			respondError(w, http.StatusInternalServerError, codeInternal, "unable to read stock")
			return
		}
		if stock < merged[id] {
			shortages = append(shortages, fmt.Sprintf("%s (%d requested, %d available)", name, merged[id], stock))
		}
		live[id] = liveRow{name: name, stock: stock}
	}
	if len(shortages) > 0 {
		respondError(w, http.StatusConflict, codeInsufficientStock, "insufficient stock for "+strings.Join(shortages, ", "))
		return
	}

	now := nowStamp()
	var fullName *string
	if name := staff.FullName(); name != "" {
		fullName = &name
	}

	records := make([]domain.Distribution, 0, len(ids))
	for _, id := range ids {
		quantity := merged[id]
		if _, err := tx.Exec(`UPDATE medicines SET stock = stock - $1, updated_at = $2 WHERE id = $3`, quantity, now, id); err != nil {
			h.logger.Error("decrement stock", zap.Error(err))
			respondError(w, http.StatusInternalServerError, codeInternal, "unable to update stock")
			return
		}

		record := domain.Distribution{
			ID:              uuid.NewString(),
			MedicineID:      id,
			MedicineName:    live[id].name,
			Quantity:        quantity,
			StaffUserID:     staff.ID,
			StaffUsername:   staff.Username,
			StaffFullName:   fullName,
			StaffNationalID: staff.NationalID,
			DistributedBy:   operator.Username,
			DistributedAt:   now,
		}
		if _, err := tx.Exec(`INSERT INTO distributions (id, medicine_id, medicine_name, quantity, staff_user_id, staff_username, staff_full_name, staff_national_id, distributed_by, distributed_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			record.ID, record.MedicineID, record.MedicineName, record.Quantity, record.StaffUserID,
			record.StaffUsername, record.StaffFullName, record.StaffNationalID, record.DistributedBy, record.DistributedAt); err != nil {
			h.logger.Error("insert distribution", zap.Error(err))
			respondError(w, http.StatusInternalServerError, codeInternal, "unable to record distribution")
			return
		}
		records = append(records, record)
	}

	if err := tx.Commit(); err != nil {
		h.logger.Error("commit distribution", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to finalize distribution")
		return
	}

	h.logger.Info("distribution committed",
		zap.String("staff", staff.Username),
		zap.String("operator", operator.Username),
		zap.Int("items", len(records)),
	)

	respondJSON(w, http.StatusCreated, domain.DistributeResponse{
		Success:       true,
		Message:       fmt.Sprintf("Distributed %d medicine(s) to %s", len(records), staff.Username),
		Distributions: records,
	})
}

// Distribution ledger

const distributionColumns = `id, medicine_id, medicine_name, quantity, staff_user_id, staff_username, staff_full_name, staff_national_id, distributed_by, distributed_at`

func (h *Handler) listDistributions(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultPageLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, codeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var offset int64
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, codeValidation, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	var (
		args    []any
		clauses []string
	)
	if v := strings.TrimSpace(r.URL.Query().Get("staffNationalId")); v != "" {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("staff_national_id = $%d", len(args)))
	}
	if v := strings.TrimSpace(r.URL.Query().Get("medicineId")); v != "" {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("medicine_id = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	if err := h.db.Get(&total, `SELECT COUNT(*) FROM distributions`+where, args...); err != nil {
		h.logger.Error("count distributions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to count distributions")
		return
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM distributions%s ORDER BY distributed_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		distributionColumns, where, len(args)-1, len(args))

	items := []domain.Distribution{}
	if err := h.db.Select(&items, query, args...); err != nil {
		h.logger.Error("list distributions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, codeInternal, "unable to list distributions")
		return
	}

	respondJSON(w, http.StatusOK, domain.DistributionsPage{Items: items, Total: total})
}

// Helpers

// stampLayout is fixed width (nine fractional digits, UTC), so the byte-wise
// TEXT ordering of stored stamps is chronological. RFC3339Nano trims trailing
// zeros and would break the ledger sort for sub-second stamps.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func stampTime(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func nowStamp() string {
	return stampTime(time.Now())
}

func nullIfEmpty(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]string{"error": code}
	if message != "" {
		body["message"] = message
	}
	respondJSON(w, status, body)
}
