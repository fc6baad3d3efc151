package domain

import (
	"strings"

	dErrors "donorhub/pkg/domain-errors"
)

// BloodType is an ABO/Rh blood group.
// Invariant: one of the eight values in BloodTypes.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// BloodTypes lists every supported blood type in display order.
var BloodTypes = []BloodType{
	BloodTypeAPos, BloodTypeANeg,
	BloodTypeBPos, BloodTypeBNeg,
	BloodTypeABPos, BloodTypeABNeg,
	BloodTypeOPos, BloodTypeONeg,
}

// ParseBloodType normalizes case and surrounding whitespace, then checks the
// value against BloodTypes.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if bt == "" {
		return "", dErrors.New(dErrors.CodeValidation, "blood_type is required")
	}
	if !bt.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "blood_type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	return bt, nil
}

func (b BloodType) IsValid() bool {
	for _, v := range BloodTypes {
		if b == v {
			return true
		}
	}
	return false
}

func (b BloodType) String() string {
	return string(b)
}
