// Package protocol defines the shardkv wire format: one text request line and
// one text reply line per TCP connection.
//
// Requests:
//
//	SET <key> <value>    value is a 32-bit signed decimal integer
//	GET <key>
//	DEL <key>
//
// Fields are separated by single spaces; keys cannot contain spaces. A request
// ends at the first newline, at EOF, or when MaxRequestSize bytes have been
// read, whichever comes first. NUL padding around the text is ignored.
//
// Replies always end in a newline and are one of:
//
//	OK (from node <index>)
//	<value> (from node <index>)
//	ERROR: Invalid command
//	ERROR: Invalid SET command
//	ERROR: Invalid GET command
//	ERROR: Invalid DEL command
//	ERROR: Key not found
//
// The server closes the connection after writing the reply; that close is the
// end-of-response signal. There is no keep-alive and no pipelining.
//
// Errors never travel out of band. Each failure kind is an *Error whose Reply
// is the exact text written on the wire.
package protocol
