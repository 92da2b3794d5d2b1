// Package fwxml reads and writes project files as a stream of records.
//
// A project file is a single root element containing an optional custom
// field definition block followed by an ordered sequence of rt records:
//
//	<languageproject version="7000072">
//	  <AdditionalFields>...</AdditionalFields>
//	  <rt class="LexEntry" guid="..." ownerguid="...">
//	    <LexemeForm><objsur guid="..." t="o" /></LexemeForm>
//	  </rt>
//	</languageproject>
//
// Records are materialized one at a time as etree elements so callers can
// edit them in place before handing them to a Writer. Nothing larger than a
// single record is held in memory.
package fwxml
