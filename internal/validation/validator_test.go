// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package validation

import (
	"strings"
	"testing"
)

type loginPayload struct {
	Username string `validate:"required,min=1,max=128"`
	Password string `validate:"required,min=1,max=512"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(&loginPayload{Username: "admin", Password: "pw"}); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	err := ValidateStruct(&loginPayload{Username: "admin"})
	if err == nil {
		t.Fatal("missing password accepted")
	}
	if !strings.Contains(err.Error(), "Password") {
		t.Errorf("error does not name the failing field: %v", err)
	}

	if err := ValidateStruct(&loginPayload{Username: strings.Repeat("x", 200), Password: "pw"}); err == nil {
		t.Error("over-length username accepted")
	}
}
