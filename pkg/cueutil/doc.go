// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// The package consolidates the 3-step CUE parsing pattern used by the
// fragment loader and the application config:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// Descriptors that arrive in another format (TOML, YAML) are first decoded
// to plain Go values and then pushed through the same schema with
// DecodeGoValue.
//
// # Usage
//
//	//go:embed fragment_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[descriptor](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Fragment",
//	    cueutil.WithFilename("app/layerbuild.cue"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
//	return result.Value, nil
package cueutil
