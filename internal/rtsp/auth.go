package rtsp

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	realmRegexp  = regexp.MustCompile(`realm="(.*?)"`)
	nonceRegexp  = regexp.MustCompile(`nonce="(.*?)"`)
	opaqueRegexp = regexp.MustCompile(`opaque="(.*?)"`)
)

// authenticator answers WWW-Authenticate challenges with the credentials
// taken from the target URL.
type authenticator struct {
	username string
	password string

	digest bool
	realm  string
	nonce  string
	opaque string
}

// challenge records the server's challenge. Digest wins over Basic when a
// server offers both.
func (a *authenticator) challenge(lines []string) error {
	var basic bool
	for _, line := range lines {
		switch {
		case strings.HasPrefix(strings.ToLower(line), "digest"):
			realm := realmRegexp.FindStringSubmatch(line)
			if len(realm) != 2 {
				return errors.New("authline not found realm")
			}
			nonce := nonceRegexp.FindStringSubmatch(line)
			if len(nonce) != 2 {
				return errors.New("authline not found nonce")
			}
			a.digest = true
			a.realm = realm[1]
			a.nonce = nonce[1]
			if opaque := opaqueRegexp.FindStringSubmatch(line); len(opaque) == 2 {
				a.opaque = opaque[1]
			}
			return nil
		case strings.HasPrefix(strings.ToLower(line), "basic"):
			basic = true
		}
	}
	if basic {
		a.digest = false
		return nil
	}
	return errors.Errorf("unsupported auth scheme %q", strings.Join(lines, ", "))
}

/*
	HA1=MD5(username:realm:password)
	HA2=MD5(method:uri)
	Response =MD5(HA1:nonce:HA2)
*/
func (a *authenticator) header(method, uri string) string {
	if !a.digest {
		token := base64.StdEncoding.EncodeToString([]byte(a.username + ":" + a.password))
		return "Basic " + token
	}
	ha1 := fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", a.username, a.realm, a.password))))
	ha2 := fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s:%s", method, uri))))
	response := fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", ha1, a.nonce, ha2))))
	line := fmt.Sprintf(`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		a.username, a.realm, a.nonce, uri, response)
	if a.opaque != "" {
		line += fmt.Sprintf(`, opaque="%s"`, a.opaque)
	}
	return line
}
