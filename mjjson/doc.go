/*
mjjson is a formatter (mjbase.Handler) that writes one JSON
object per event. It keeps the fields of open spans and merges
them into every event that happens inside those spans.

Lines

With the default settings a line looks like:

	{
		"timestamp": "2026-02-20T12:00:00.000000Z",
		"level": "INFO",
		"target": "billing",
		"fields": {
			"request_id": "root span fields come first",
			"step": "then fields of the spans nested inside it",
			"message": "and finally the event's own fields"
		}
	}

Metadata keys, when enabled, come in this order: timestamp, level,
target, filename, line_number, threadId, threadName, source,
trace_id, span_id.

With WithFlattenEvent(true) the contents of "fields" move to the
top level.

Keys are never repeated. When an event and one of its spans (or
two spans) have the same key, the value closest to the event
wins and is written where that value would have been written.
A flattened field that has the name of a metadata key, or of
"span" or "spans" when those are written, is dropped; the
metadata value stays.

Spans

By default span fields only show up merged into the event's
fields and nothing else is written about the spans. The span
objects are opt-in: WithCurrentSpan(true) adds the innermost
span and WithSpanList(true) adds every entered span, root first:

	"span": {"name": "step", "n": 3},
	"spans": [{"name": "request", "request_id": "r1"}, {"name": "step", "n": 3}]

A span field called "name" is left out of these objects.

Strings

Quotes, backslashes and control characters are escaped. Other
text is passed through. Bytes that are not valid UTF-8 become
U+FFFD. NaN and infinite floats are written as null.
*/
package mjjson
