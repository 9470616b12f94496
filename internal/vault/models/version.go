package models

// CurrentFormatVersion is the serialization version written by this build
// into vault metadata and backup artifacts. Readers accept any version up to
// and including it, and reject newer ones.
const CurrentFormatVersion = 1
