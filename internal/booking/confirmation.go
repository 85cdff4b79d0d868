package booking

import "crypto/rand"

// Crockford base32 without I, L, O and U, so codes read back over the
// phone unambiguously.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// newConfirmationNumber returns "RSV-" followed by 8 random characters.
func newConfirmationNumber() (string, error) {
    b := make([]byte, 8)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    out := make([]byte, 0, 12)
    out = append(out, "RSV-"...)
    for _, c := range b {
        out = append(out, crockford[c&31])
    }
    return string(out), nil
}
