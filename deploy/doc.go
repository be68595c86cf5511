/*
Package deploy provides deployment of the passkey registry contract to the Neo
network.
*/
package deploy
