// Package session runs a headless page session over a list of artwork URLs.
//
// A session opens the first page in a simulated tab, attaches the navigation
// classifier and the artwork download patch to it, and then for every URL
// navigates the tab, waits for the toolbar, operates it the way a user would
// (pick a part or tick "All parts", press Download) and waits until every
// requested part has settled. Progress flows to a ui.SessionView.
package session
