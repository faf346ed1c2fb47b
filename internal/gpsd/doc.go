// Package gpsd decodes the JSON reports streamed by gpsd into typed records.
//
// Each line gpsd writes is one JSON object. Top-level reports carry a
// "class" discriminator (TPV, SKY, GST, ATT, SUBFRAME, VERSION, DEVICES,
// DEVICE, WATCH, POLL, ERROR, PPS). Nested objects without one, satellite
// entries and subframe payloads, are recognised by a fingerprint field.
//
// Decoding is best effort below the top level: absent numbers become NaN,
// unreadable timestamps become NaN, and an unknown subframe payload leaves a
// header-only Subframe. Only malformed JSON (ErrSyntax) and unclassifiable
// objects (ErrUnknownClass) fail a decode.
package gpsd
