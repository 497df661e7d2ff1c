package address

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

// Input is the writable part of an address.
type Input struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,max=12"`
	Phone   string `json:"phone" validate:"required,max=20"`
}

func (in Input) normalize() (Input, error) {
	out := Input{
		Street:  strings.TrimSpace(in.Street),
		City:    strings.TrimSpace(in.City),
		State:   strings.TrimSpace(in.State),
		Pincode: strings.TrimSpace(in.Pincode),
		Phone:   strings.TrimSpace(in.Phone),
	}
	missing := []string{}
	for field, value := range map[string]string{
		"street":  out.Street,
		"city":    out.City,
		"state":   out.State,
		"pincode": out.Pincode,
		"phone":   out.Phone,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Input{}, pkgerrors.New(pkgerrors.CodeValidation, "all address fields are required").
			WithDetails(map[string]any{"missing": missing})
	}
	return out, nil
}

// DTO is an address as returned to clients.
type DTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func dtoOf(a models.Address) DTO {
	return DTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Phone:     a.Phone,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
