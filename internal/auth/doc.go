// Package auth issues and validates bearer tokens for the device API.
//
// Tokens are HS256 JWTs carrying a subject and a Role. Roles map to a
// static permission set; reading device properties needs PermDeviceRead
// and starting a refresh pass needs PermDeviceRefresh.
package auth
