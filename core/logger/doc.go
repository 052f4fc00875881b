// Package logger is a standardized event logging framework for the interpreter.
//
// Every entry is a JSON object on its own line, encoded with protojson so the
// payload keeps the structpb.Struct shape regardless of the event type.
package logger
