// Package api implements the mailbridge REST endpoints.
//
// Every /email route requires a Google OAuth access token, taken from the
// JSON body (accessToken or oauth_token), the oauth_token query parameter or
// an Authorization bearer header, in that order. A Gmail client bound to the
// token is built per request; nothing is cached between requests.
//
// Message bodies and attachment descriptors are produced by the payload
// extractor in the gmail package. Parts that fail to decode are logged and
// counted, and the partial result is still served.
package api
