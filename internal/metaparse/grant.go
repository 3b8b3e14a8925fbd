package metaparse

import "strings"

// Grant is one `#<encryptedKey>@<username>` encryption share.
type Grant struct {
	EncryptedKey string
	Username string
}

// parseGrants splits a `;`-separated encData string into its grants.
// Malformed entries (no '@') are skipped, never fatal — the metadata
// parser never throws, it logs and continues.
func parseGrants(encData string) []Grant {
	if encData == "" {
		return nil
	}
	var grants []Grant
	for _, part := range strings.Split(encData, ";") {
		part = strings.TrimPrefix(part, "#")
		if part == "" {
			continue
		}
		at := strings.LastIndexByte(part, '@')
		if at < 0 {
			continue
		}
		grants = append(grants, Grant{
			EncryptedKey: part[:at],
			Username: part[at+1:],
		})
	}
	return grants
}
