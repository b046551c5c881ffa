// Package backend reads lessons, quests, profiles and completion records from
// the managed backend's REST interface.
package backend
