// Package decode turns raw engine replies into typed records. Every decoder skips blank lines and
// ignores unknown trailing fields; a missing or malformed field is a parse error, and no decoder
// ever returns a partial result.
package decode
