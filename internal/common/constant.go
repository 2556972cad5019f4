package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on authenticated requests.
const AccessTokenHeaderName = "X-Access-Token"

// ShareQueryParam is the query-string key carrying a share-link id on
// unauthenticated read requests.
const ShareQueryParam = "share"
