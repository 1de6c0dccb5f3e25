// Package texlog reconstructs the unstructured byte stream of a TeX
// engine run into a typed event stream with explicit provenance spans.
//
// The pipeline is: LineScanner (normalization over raw bytes) ->
// tokenizer with guarded wrap-join -> event state machine -> Parser
// (streaming driver with synchronization anchors). The parser is total:
// it terminates on arbitrary bytes and never panics; ambiguity is
// represented in confidences and recovery codes, never guessed away.
package texlog
