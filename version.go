package vad

// Version identifies the detector's segmentation semantics and the acoustic
// model it targets. Callers embedding this module in a larger protocol can
// surface it verbatim.
const Version = "1.0.0-silero-v5"
