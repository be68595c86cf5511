/*
Package common contains helpers shared by the contract code: versioning of
updates and committee-based update access.

Functions of this package are compiled into the contract and are not supposed
to be called off-chain.
*/
package common
