package core

// CapNotifier is the contract towards the capability subsystem.
//
// PushSeqAdvanced is called with the post-increment push sequence every time
// a session's sequence is incremented; the value must be attached to the
// capability message about to be sent to that client.
//
// ReleaseCaps is called once when a session is removed, with every inode the
// client still held caps on (most recently used first), so the subsystem can
// drop or revoke them. After the call the session holds no back-references.
//
// Both methods are invoked without the session table lock held.
type CapNotifier interface {
	PushSeqAdvanced(client EntityName, seq uint64)
	ReleaseCaps(client EntityName, inodes []InodeNo)
}

// NopCapNotifier ignores all notifications.
type NopCapNotifier struct{}

// PushSeqAdvanced does nothing.
func (NopCapNotifier) PushSeqAdvanced(EntityName, uint64) {}

// ReleaseCaps does nothing.
func (NopCapNotifier) ReleaseCaps(EntityName, []InodeNo) {}
