package session

// TokenPair is the canonical token shape the session core works with.
// Refresh may be empty; Access never is for a usable pair.
type TokenPair struct {
	Access  string
	Refresh string
}

// NormalizeTokenPair collapses the dual field naming some backends use
// (access/refresh vs access_token/refresh_token) at the collaborator
// boundary, so the core never sees format variance. The short names win when
// both are set.
func NormalizeTokenPair(result *LoginResult) (TokenPair, error) {
	if result == nil {
		return TokenPair{}, ErrMissingAccessToken
	}

	pair := TokenPair{
		Access:  result.Access,
		Refresh: result.Refresh,
	}
	if pair.Access == "" {
		pair.Access = result.AccessToken
	}
	if pair.Refresh == "" {
		pair.Refresh = result.RefreshToken
	}

	if pair.Access == "" {
		return TokenPair{}, ErrMissingAccessToken
	}
	return pair, nil
}
