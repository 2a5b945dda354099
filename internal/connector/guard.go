package connector

import (
	"strings"

	"github.com/guarzo/sellerpulse/internal/errs"
)

// readVerbs are the only operation verbs a connector may forward to a platform.
var readVerbs = map[string]bool{
	"GET":      true,
	"LIST":     true,
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
}

// Guard rejects any operation whose leading verb is not a read. Connectors call
// it before issuing a platform request; the engine never catches the result.
func Guard(operation string) error {
	fields := strings.Fields(operation)
	if len(fields) == 0 {
		return errs.New(errs.ReadOnlyViolation, "guard", "empty operation")
	}

	verb := strings.ToUpper(fields[0])
	if !readVerbs[verb] {
		return errs.New(errs.ReadOnlyViolation, "guard", "read-only mode: %s operations are not allowed", verb)
	}
	return nil
}

// RefuseWrite is what a connector returns from any mutating method.
func RefuseWrite(method string) error {
	return errs.New(errs.ReadOnlyViolation, method, "read-only mode: writes are not allowed")
}
