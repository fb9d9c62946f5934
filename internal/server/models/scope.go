// Package models holds the domain types shared by the storage, service and
// transport layers.
package models

// ScopeKind names one of the independent key record spaces.
type ScopeKind string

const (
	ScopeUserPublic        ScopeKind = "user-public"
	ScopeUserSymmetric     ScopeKind = "user-symmetric"
	ScopeDevicePublic      ScopeKind = "device-public"
	ScopeDevicePrivate     ScopeKind = "device-private"
	ScopeDeviceArbitrary   ScopeKind = "device-arbitrary"
	ScopeSharedDocumentKey ScopeKind = "shared-document-key"
	ScopeDocumentMetadata  ScopeKind = "document-metadata"
)

// Replaceable reports whether records of this kind may be overwritten.
// Only device keys addressed by an arbitrary kid are last-write-wins.
func (k ScopeKind) Replaceable() bool {
	return k == ScopeDeviceArbitrary
}

// Scope locates a key record space. User is always set; Device, Document
// and Recipient only for the kinds that need them.
type Scope struct {
	Kind      ScopeKind
	User      string
	Device    string
	Document  string
	Recipient string
}

func UserPublicKeys(user string) Scope {
	return Scope{Kind: ScopeUserPublic, User: user}
}

func UserSymmetricKeys(user string) Scope {
	return Scope{Kind: ScopeUserSymmetric, User: user}
}

func DevicePublicKeys(user, device string) Scope {
	return Scope{Kind: ScopeDevicePublic, User: user, Device: device}
}

func DevicePrivateKeys(user, device string) Scope {
	return Scope{Kind: ScopeDevicePrivate, User: user, Device: device}
}

func DeviceKeys(user, device string) Scope {
	return Scope{Kind: ScopeDeviceArbitrary, User: user, Device: device}
}

// SharedDocumentKeys is keyed by recipient email, so the kid stored under
// it is always the fixed SharedKeyKid.
func SharedDocumentKeys(user, document, recipient string) Scope {
	return Scope{Kind: ScopeSharedDocumentKey, User: user, Document: document, Recipient: recipient}
}

// DocumentMetadataScope holds one metadata record per document, stored
// under the document id as kid.
func DocumentMetadataScope(user string) Scope {
	return Scope{Kind: ScopeDocumentMetadata, User: user}
}

// SharedKeyKid is the kid used for shared document keys.
const SharedKeyKid = "encrypted-shared"
