package enums

import "fmt"

// PixKeyType identifies the format of a producer's PIX key.
type PixKeyType string

const (
	PixKeyTypeCPF    PixKeyType = "cpf"
	PixKeyTypeCNPJ   PixKeyType = "cnpj"
	PixKeyTypeEmail  PixKeyType = "email"
	PixKeyTypePhone  PixKeyType = "phone"
	PixKeyTypeRandom PixKeyType = "random"
)

var validPixKeyTypes = []PixKeyType{
	PixKeyTypeCPF,
	PixKeyTypeCNPJ,
	PixKeyTypeEmail,
	PixKeyTypePhone,
	PixKeyTypeRandom,
}

// String implements fmt.Stringer.
func (p PixKeyType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PixKeyType.
func (p PixKeyType) IsValid() bool {
	for _, candidate := range validPixKeyTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePixKeyType converts raw input into a PixKeyType.
func ParsePixKeyType(value string) (PixKeyType, error) {
	for _, candidate := range validPixKeyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pix key type %q", value)
}
