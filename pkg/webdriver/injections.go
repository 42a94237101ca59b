// File: pkg/webdriver/injections.go
package webdriver

import "strings"

// Page globals are namespaced by version so a page that already carries an
// older helper never receives arguments in a shape it does not understand.
const (
	injectionVersion = "v1"
	jqueryGlobal     = "window.__scalpelwd_" + injectionVersion + "_jquery"
	getElementsFn    = "window.__scalpelwd_" + injectionVersion + "_getElements"
)

var injectionVars = strings.NewReplacer(
	"{{jq}}", jqueryGlobal,
	"{{getElements}}", getElementsFn,
)

func injection(tmpl string) string {
	return injectionVars.Replace(tmpl)
}

var (
	checkJQueryScript = injection(`return typeof {{jq}} === 'function';`)

	// aliasJQueryScript reuses the page's own jQuery when no source is configured.
	aliasJQueryScript = injection(`
if (typeof window.jQuery === 'function') {
	{{jq}} = window.jQuery;
	return true;
}
return false;`)

	checkGetElementsScript = injection(`return typeof {{getElements}} === 'function';`)

	defineGetElementsScript = injection(`
{{getElements}} = function(selector, parent, chain, cssFilter) {
	var $ = {{jq}};
	var elements = parent ? $(selector, parent) : $(selector);

	if (elements && elements.length && chain) {
		for (var i = 0; i < chain.length; i++) {
			var step = chain[i];
			if (typeof elements[step.method] !== 'function') {
				throw new Error('Unknown jquery method: ' + step.method);
			}
			var args = step.args == null ? [] : ($.isArray(step.args) ? step.args : [step.args]);
			elements = elements[step.method].apply(elements, args);
		}
	}

	if (elements && elements.length && cssFilter) {
		elements = elements.filter(function(index, element) {
			for (var prop in cssFilter) {
				if ($(element).css(prop) !== cssFilter[prop]) {
					return false;
				}
			}
			return true;
		});
	}

	return elements && elements.length ? elements.get() : [];
};
return true;`)

	callGetElementsScript = injection(`return {{getElements}}.apply(null, arguments);`)

	// documentReadyScript is asynchronous: arguments are (timeoutMs, callback).
	documentReadyScript = injection(`
var timeout = arguments[0], callback = arguments[arguments.length - 1];
var $ = {{jq}};
var handle = setTimeout(function() { callback(false); }, timeout);
$(document).ready(function() {
	clearTimeout(handle);
	callback(true);
});`)
)

// loadJQueryScript wraps a jQuery source so it installs under the helper
// global and hands the page's own $ and jQuery back.
func loadJQueryScript(source string) string {
	return "(function() {\n" + source + "\n})();\n" +
		injection("{{jq}} = window.jQuery.noConflict(true);\nreturn true;")
}
