// The cmd directory contains the runnable binaries:
//
//   - engine: the ordering-channel engine service
//   - enqueue: submits a secret message or content announcement to a
//     running engine
package cmd
