// Package project implements the milestone-gated escrow state machine.
//
// A Project pairs with one Vault. Pledgers move payment tokens into the
// vault through the project; approvers (or on-chain targets) resolve
// milestones, and each success releases the milestone value to the team
// wallet minus the platform cut. The last success sweeps the whole vault and
// moves the project to SUCCEEDED. A rejection, or any resolution attempted
// after a milestone's due date, moves it to FAILED and freezes the vault for
// pro-rata refunds.
//
// # Serialization
//
// Every public operation holds the project mutex for its full duration and
// runs as a transaction: state is mutated first, token transfers are issued
// last, and any failure restores the state captured at the start of the call.
// Events are buffered while the call runs and published to the Sink only
// after the mutex is released.
//
// # Time
//
// Overdue and grace-period checks read the injected clock at call time. There
// are no timers.
package project
