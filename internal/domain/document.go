package domain

import (
	"fmt"
	"strings"
)

// DocumentKind distinguishes the two Brazilian taxpayer document types.
type DocumentKind string

const (
	DocumentCPF  DocumentKind = "cpf"  // pessoa física, 11 digits
	DocumentCNPJ DocumentKind = "cnpj" // pessoa jurídica, 14 digits
)

// OnlyDigits strips everything that is not a digit. Used for CPF/CNPJ
// normalization and for the phone/zip fields the gateway wants bare.
func OnlyDigits(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}

// NormalizeDocument strips everything that is not a digit from a
// CPF/CNPJ, so "123.456.789-09" and "12345678909" are equivalent.
func NormalizeDocument(value string) string {
	return OnlyDigits(value)
}

// ClassifyDocument normalizes a CPF/CNPJ and decides which field it
// belongs to. Anything that is not exactly 11 or 14 digits is rejected
// here, before any network call is made.
func ClassifyDocument(value string) (DocumentKind, string, error) {
	digits := NormalizeDocument(value)
	switch len(digits) {
	case 11:
		return DocumentCPF, digits, nil
	case 14:
		return DocumentCNPJ, digits, nil
	default:
		return "", "", &ErrValidation{
			Field:   "document",
			Message: fmt.Sprintf("documento deve ter 11 (CPF) ou 14 (CNPJ) dígitos, recebido %d", len(digits)),
		}
	}
}
