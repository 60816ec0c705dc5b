// Package transfer moves blobs in chunks through the executor, with
// resumption and end-to-end integrity verification.
//
// Uploads follow the two-phase registry flow: initiate to obtain an upload
// location, send each chunk with an explicit byte range, and commit with
// the expected digest. When the peer reports a range mismatch the manager
// queries the peer's authoritative offset and resumes from there instead
// of failing or restarting from byte zero. A Session snapshot is
// JSON-serializable so an interrupted upload can resume across process
// restarts.
//
// Downloads stream range-sized chunks through a running digest; once the
// stream completes, the computed digest is compared to the expected one
// and a mismatch fails the transfer. Callers must treat partially written
// output as untrustworthy until Download returns nil.
package transfer
