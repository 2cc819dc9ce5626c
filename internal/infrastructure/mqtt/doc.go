// Package mqtt connects devicekit to an MQTT broker.
//
// The agent publishes retained state on:
//
//	devicekit/device/{client_id}/properties   property snapshot after each pass
//	devicekit/device/{client_id}/ready        readiness and pass summary
//	devicekit/status/{client_id}              online/offline (also the last will)
//
// and listens for remote commands on devicekit/device/{client_id}/command/{name}.
//
// Reconnection is handled by paho with exponential backoff; tracked
// subscriptions are restored after every reconnect.
package mqtt
