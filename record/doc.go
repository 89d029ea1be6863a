// Package record defines the data model consumed by the template engine:
// references, records with typed fields, queries, and the [Source] interface
// through which records, relations, option labels and actions are obtained.
//
// Two sources are provided. [Memory] keeps everything in maps and is built
// from a YAML [Fixture]. [SQL] stores the same data in SQLite, PostgreSQL or
// MySQL.
package record
