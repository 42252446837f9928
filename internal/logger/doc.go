// Package logger wraps zap for the packager:
//   - a global sugared logger writing a compact console format to stdout,
//   - context helpers (ToContext/FromContext/WithName/WithKV) so every stage
//     logs with the target and step it is working on,
//   - level parsing for the --log-level flag.
package logger
