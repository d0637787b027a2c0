// Package adapters turns source descriptors into normalized items. Each
// adapter owns one wire format (RSS region feeds, active-alert JSON APIs,
// awareness RSS with stable identities, HTML bulletin tables) and is selected
// by the descriptor's type through the Registry.
package adapters
